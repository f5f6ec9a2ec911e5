package pagination

// Pagination is the 1-based page/limit contract used by all list endpoints.
type Pagination struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=10" validate:"gte=1,lte=250"` // Min 1, Max 250
}

type PageInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// Normalize clamps page and limit to sane positive values.
func (p Pagination) Normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Limit > 250 {
		p.Limit = 250
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// BuildPageInfo computes ceil(total/limit) page counts for the response envelope.
func BuildPageInfo(p Pagination, total int64) PageInfo {
	n := p.Normalize()
	pages := total / int64(n.Limit)
	if total%int64(n.Limit) != 0 {
		pages++
	}
	return PageInfo{
		Page:  n.Page,
		Limit: n.Limit,
		Total: total,
		Pages: pages,
	}
}
