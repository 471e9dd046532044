package pagination

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MinLimit     = 1
)

// Options is the "options" object accepted by list endpoints
type Options struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Pagination *bool  `json:"pagination"`
	Sort       string `json:"sort"`
}

// Params holds validated pagination parameters
type Params struct {
	Page     int
	Limit    int
	Offset   int
	Disabled bool
	Sort     string
}

// Meta is the paginator block returned next to list data
type Meta struct {
	ItemCount   int64 `json:"itemCount"`
	PerPage     int   `json:"perPage"`
	PageCount   int   `json:"pageCount"`
	CurrentPage int   `json:"currentPage"`
	SlNo        int   `json:"slNo"`
	HasPrevPage bool  `json:"hasPrevPage"`
	HasNextPage bool  `json:"hasNextPage"`
	Prev        *int  `json:"prev"`
	Next        *int  `json:"next"`
}

// Page couples a slice of rows with its paginator metadata
type Page[T any] struct {
	Data      []T  `json:"data"`
	Paginator Meta `json:"paginator"`
}

// Parse validates list options, falling back to defaults
func Parse(opts Options) Params {
	page := opts.Page
	limit := opts.Limit

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:     page,
		Limit:    limit,
		Offset:   (page - 1) * limit,
		Disabled: opts.Pagination != nil && !*opts.Pagination,
		Sort:     opts.Sort,
	}
}

// NewMeta computes paginator metadata for a page of a result set of size total
func NewMeta(p Params, total int64, returned int) Meta {
	if p.Disabled {
		return Meta{
			ItemCount:   total,
			PerPage:     returned,
			PageCount:   1,
			CurrentPage: 1,
			SlNo:        1,
		}
	}

	pageCount := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	if pageCount < 1 {
		pageCount = 1
	}
	m := Meta{
		ItemCount:   total,
		PerPage:     p.Limit,
		PageCount:   pageCount,
		CurrentPage: p.Page,
		SlNo:        p.Offset + 1,
		HasPrevPage: p.Page > 1,
		HasNextPage: p.Page < pageCount,
	}
	if m.HasPrevPage {
		prev := p.Page - 1
		m.Prev = &prev
	}
	if m.HasNextPage {
		next := p.Page + 1
		m.Next = &next
	}
	return m
}
