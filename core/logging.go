package core

import (
	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the standard logger.
func SetupLogging(level log.Level) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(level)
}
