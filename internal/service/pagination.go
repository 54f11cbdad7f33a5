package service

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p Page) offset() int { return (p.Number - 1) * p.Limit }

func (p Page) totalPages(total int64) int {
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
