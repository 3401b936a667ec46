package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"avatar-server-go/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [bootstrap] starting avatar-stt...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.RunSTT(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "avatar-stt failed: %v\n", err)
		os.Exit(1)
	}
}
