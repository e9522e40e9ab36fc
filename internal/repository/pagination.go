package repository

// Page is 1-based. Limit <= 0 means the repository default.
type Pagination struct {
	Page  int
	Limit int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}
