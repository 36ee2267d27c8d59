package main

import (
	"os"

	"github.com/samjwillis97/GoModal/cmd"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	if err := cmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
