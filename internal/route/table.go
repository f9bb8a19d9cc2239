package route

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strings"
)

// ForwardScheme はGateway自身が応答するターゲットの接頭辞。
// 例: "forward:/actuator/health"
const ForwardScheme = "forward:"

// Rule はパスパターンからバックエンドへの対応付け。
type Rule struct {
	// ID はルートの識別子。
	ID string
	// Patterns はパスパターン。完全一致（"/health"）か末尾が "/**" の前方一致（"/api/users/**"）。
	Patterns []string
	// Target は転送先のURIまたは "forward:" で始まるローカルターゲット。
	Target string
	// RequiresAuth はBearerトークンによる認証が必要かどうか。
	RequiresAuth bool
	// AdminOnly はパスにかかわらずADMINロールを要求するかどうか。
	AdminOnly bool
}

// IsLocal はターゲットがGateway自身かどうかを返す。
func (r Rule) IsLocal() bool {
	return strings.HasPrefix(r.Target, ForwardScheme)
}

// LocalPath は "forward:" ターゲットのパス部分を返す。
func (r Rule) LocalPath() string {
	return strings.TrimPrefix(r.Target, ForwardScheme)
}

func (r Rule) clone() Rule {
	r.Patterns = slices.Clone(r.Patterns)
	return r
}

// pattern はコンパイル済みのパスパターン。
type pattern struct {
	// literal はワイルドカードより前の文字列。前方一致の場合は末尾の "/" を含む。
	literal string
	prefix  bool
}

// exactScore は完全一致の優先度。どの前方一致よりも優先される。
const exactScore = math.MaxInt

// score はpathに対する一致度を返す。一致しない場合は-1。
func (p pattern) score(path string) int {
	if !p.prefix {
		if path == p.literal {
			return exactScore
		}
		return -1
	}
	if strings.HasPrefix(path, p.literal) || path == strings.TrimSuffix(p.literal, "/") {
		return len(p.literal)
	}
	return -1
}

// parsePattern はパスパターンを検証してコンパイルする。
func parsePattern(s string) (pattern, error) {
	if !strings.HasPrefix(s, "/") {
		return pattern{}, fmt.Errorf("パターン %q は \"/\" で始まる必要があります", s)
	}
	if lit, ok := strings.CutSuffix(s, "/**"); ok {
		if strings.Contains(lit, "*") {
			return pattern{}, fmt.Errorf("パターン %q のワイルドカードは末尾の \"/**\" のみ使用できます", s)
		}
		return pattern{literal: lit + "/", prefix: true}, nil
	}
	if strings.Contains(s, "*") {
		return pattern{}, fmt.Errorf("パターン %q のワイルドカードは末尾の \"/**\" のみ使用できます", s)
	}
	return pattern{literal: s}, nil
}

type compiledRule struct {
	rule     Rule
	patterns []pattern
}

// Table は宣言順に並んだルートの集合。
// 生成後は変更されないため、ロックなしで並行に参照できる。
type Table struct {
	rules []compiledRule
}

// NewTable はルートを検証してTableを生成する。渡されたスライスはコピーされる。
func NewTable(rules []Rule) (*Table, error) {
	t := &Table{rules: make([]compiledRule, 0, len(rules))}
	seen := make(map[string]struct{}, len(rules))

	for i, r := range rules {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%d番目のルートのIDが空です", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("ルートID %q が重複しています", r.ID)
		}
		seen[r.ID] = struct{}{}

		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("ルート %q にパターンがありません", r.ID)
		}
		if r.AdminOnly && !r.RequiresAuth {
			return nil, fmt.Errorf("ルート %q: AdminOnlyにはRequiresAuthが必要です", r.ID)
		}
		if err := validateTarget(r.Target); err != nil {
			return nil, fmt.Errorf("ルート %q: %w", r.ID, err)
		}

		cr := compiledRule{rule: r.clone(), patterns: make([]pattern, 0, len(r.Patterns))}
		for _, s := range r.Patterns {
			p, err := parsePattern(s)
			if err != nil {
				return nil, fmt.Errorf("ルート %q: %w", r.ID, err)
			}
			cr.patterns = append(cr.patterns, p)
		}
		t.rules = append(t.rules, cr)
	}
	return t, nil
}

func validateTarget(target string) error {
	if local, ok := strings.CutPrefix(target, ForwardScheme); ok {
		if !strings.HasPrefix(local, "/") {
			return fmt.Errorf("ローカルターゲット %q はパスを指定する必要があります", target)
		}
		return nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("ターゲット %q の解析に失敗: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("ターゲット %q のスキームはhttpかhttpsである必要があります", target)
	}
	if u.Host == "" {
		return errors.New("ターゲットのホストが空です")
	}
	return nil
}

// Match はpathに最も適合するルートを返す。
// 完全一致が最優先で、次にワイルドカード前の文字列が長いものを選ぶ。
// 同じ長さの場合は先に宣言されたルートが選ばれる。
func (t *Table) Match(path string) (Rule, bool) {
	best, bestScore := -1, -1
	for i, cr := range t.rules {
		for _, p := range cr.patterns {
			if s := p.score(path); s > bestScore {
				best, bestScore = i, s
			}
		}
	}
	if best < 0 {
		return Rule{}, false
	}
	return t.rules[best].rule.clone(), true
}

// Rules は宣言順のルート一覧のコピーを返す。
func (t *Table) Rules() []Rule {
	out := make([]Rule, 0, len(t.rules))
	for _, cr := range t.rules {
		out = append(out, cr.rule.clone())
	}
	return out
}
