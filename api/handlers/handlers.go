package handlers

import (
	"github.com/taxkit/tax-document-renamer/internal/service/run"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

type Handlers struct {
	Run *RunHandler
}

func NewHandlers(runService run.Processor, log logger.Logger) *Handlers {
	return &Handlers{
		Run: NewRunHandler(runService, log),
	}
}
