package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many records any list query can request.
	MaxLimit = 50
)

// Params holds page pagination inputs from controllers.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the page returned to the client.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Normalize enforces the configured default and maximum limits and a
// one-based page number.
func Normalize(page, limit int) Params {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// NewMeta computes the page metadata for a result set of the given size.
func NewMeta(params Params, total int) Meta {
	if total < 0 {
		total = 0
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	return Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Bounds returns the half-open slice window [start, end) for the page.
func Bounds(params Params, total int) (int, int) {
	start := (params.Page - 1) * params.Limit
	if start >= total {
		return total, total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return start, end
}
