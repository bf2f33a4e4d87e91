package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ============================================================
// Logger
// ============================================================

// New создаёт логгер сервиса: JSON в production, текст с полным временем иначе.
// Неизвестный уровень заменяется на info.
func New(level, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if environment == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// Service добавляет к записям имя сервиса.
func Service(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("service", name)
}
