package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/nao1215/apigateway/internal/route"
)

// routesFile はルート定義ファイルの構造。
//
//	routes:
//	  - id: user-service
//	    paths: ["/api/users/**"]
//	    uri: http://localhost:8081
//	    requires_auth: true
type routesFile struct {
	Routes []routeEntry `yaml:"routes"`
}

type routeEntry struct {
	ID           string   `yaml:"id"`
	Paths        []string `yaml:"paths"`
	URI          string   `yaml:"uri"`
	RequiresAuth bool     `yaml:"requires_auth"`
	AdminOnly    bool     `yaml:"admin_only"`
}

// LoadRoutesFile はYAMLファイルからルート定義を読み込む。
func LoadRoutesFile(path string) ([]route.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ルート定義ファイルの読み込みに失敗: %w", err)
	}
	rules, err := ParseRoutes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRoutes はYAMLのルート定義をパースする。未知のキーはエラーになる。
// ルートの妥当性はroute.NewTableで検証する。
func ParseRoutes(data []byte) ([]route.Rule, error) {
	var f routesFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("ルート定義のパースに失敗: %w", err)
	}
	if len(f.Routes) == 0 {
		return nil, errors.New("ルート定義が1件もありません")
	}

	rules := make([]route.Rule, 0, len(f.Routes))
	for _, e := range f.Routes {
		rules = append(rules, route.Rule{
			ID:           e.ID,
			Patterns:     e.Paths,
			Target:       e.URI,
			RequiresAuth: e.RequiresAuth,
			AdminOnly:    e.AdminOnly,
		})
	}
	return rules, nil
}
