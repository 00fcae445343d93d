package middleware

import (
	"github.com/stridelab/activity-tracker/pkg/logger"
)

type Middleware struct {
	jwtSecret []byte
	log       logger.Logger
}

func NewMiddleware(jwtSecret string, log logger.Logger) *Middleware {
	return &Middleware{
		jwtSecret: []byte(jwtSecret),
		log:       log,
	}
}
