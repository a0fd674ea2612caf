package main

import (
	"log"
	"os"

	"github.com/spigell/interview-grader/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; keys can also come from the config file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env file: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
