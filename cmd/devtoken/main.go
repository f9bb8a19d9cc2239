// 開発用のBearerトークンを発行するコマンド。
// Gatewayと同じ秘密鍵で署名したHS256トークンを標準出力に書き出す。
//
//	devtoken -sub user-1 -role ADMIN -ttl 1h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/nao1215/apigateway/internal/config"
	"github.com/nao1215/apigateway/pkg/token"
)

func main() {
	// .envが無い場合は環境変数のみを使う
	_ = godotenv.Load()

	secretDefault := os.Getenv("JWT_SECRET")
	if secretDefault == "" {
		secretDefault = config.DefaultJWTSecret
	}

	secret := flag.String("secret", secretDefault, "署名に使う秘密鍵（既定値はJWT_SECRET）")
	subject := flag.String("sub", "dev-user", "subクレーム（ユーザーID）")
	role := flag.String("role", token.DefaultRole, "roleクレーム。空文字列の場合は含めない")
	ttl := flag.Duration("ttl", time.Hour, "有効期間")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-sub は空にできません")
	}
	if *ttl <= 0 {
		log.Fatal("-ttl は正の値を指定してください")
	}

	raw, err := token.Issue(*secret, *subject, *role, *ttl)
	if err != nil {
		log.Fatalf("トークンの発行に失敗: %v", err)
	}
	fmt.Println(raw)
}
