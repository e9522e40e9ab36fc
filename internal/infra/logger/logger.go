package logger

import "go.uber.org/zap"

// JSON in prod, console output otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
