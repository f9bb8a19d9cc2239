package route

import "strings"

// rootPath はルートドキュメント。前方一致にすると全パスが公開になるため完全一致で扱う。
const rootPath = "/"

// adminSegment を含むパスは管理者スコープ。
const adminSegment = "/admin/"

// Classifier はパスが認証不要（公開）かを判定する。
// ルート解決とは独立しており、生成後は読み取り専用。
type Classifier struct {
	prefixes []string
	root     bool
}

// NewClassifier は公開パスの許可リストからClassifierを生成する。
// "/" はルートドキュメントとの完全一致、それ以外は前方一致で判定する。
func NewClassifier(publicPaths []string) Classifier {
	c := Classifier{}
	for _, p := range publicPaths {
		p = strings.TrimSpace(p)
		switch p {
		case "":
		case rootPath:
			c.root = true
		default:
			c.prefixes = append(c.prefixes, p)
		}
	}
	return c
}

// IsPublic はpathが公開パスかを返す。
func (c Classifier) IsPublic(path string) bool {
	if c.root && path == rootPath {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// PublicPaths は許可リストのコピーを返す。
func (c Classifier) PublicPaths() []string {
	out := make([]string, 0, len(c.prefixes)+1)
	if c.root {
		out = append(out, rootPath)
	}
	return append(out, c.prefixes...)
}

// IsAdminScoped はpathが管理者スコープかを返す。
// ルート設定にかかわらず、パスのどこかに "/admin/" を含めば対象となる。
func IsAdminScoped(path string) bool {
	return strings.Contains(path, adminSegment)
}
