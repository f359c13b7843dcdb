// Command finwise は家計管理APIのサーバー、ワーカー、マイグレーションを起動する。
//
// 使い方:
//
//	finwise [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/finwise/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
