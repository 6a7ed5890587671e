package pdf

import "crm-billing/go_backend/internal/domain/quote"

type Generator interface {
	Generate(q quote.Quote) ([]byte, error)
}
