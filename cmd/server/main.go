package main

import (
	"github.com/joho/godotenv"

	"leavedesk/internal/app/server"
)

func main() {
	_ = godotenv.Load()
	server.Run()
}
