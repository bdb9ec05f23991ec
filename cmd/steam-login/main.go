package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
