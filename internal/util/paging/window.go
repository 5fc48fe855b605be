// Package paging computes client-side page windows over an in-memory list.
package paging

// Bounds is the half-open slice range [Start, End) of one page.
type Bounds struct {
	Page       int
	Start      int
	End        int
	TotalPages int
}

// Empty reports whether the page holds no items.
func (b Bounds) Empty() bool {
	return b.Start >= b.End
}

// HasNext reports whether a later page exists.
func (b Bounds) HasNext() bool {
	return b.Page < b.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (b Bounds) HasPrev() bool {
	return b.Page > 1
}

// TotalPages returns ceil(n/size), which is 0 for an empty list.
func TotalPages(n, size int) int {
	if size < 1 {
		size = 1
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Clamp keeps a 1-based page number inside [1, TotalPages(n, size)]. An
// empty list shows page 1.
func Clamp(page, n, size int) int {
	total := TotalPages(n, size)
	if page > total {
		page = total
	}
	if page < 1 {
		return 1
	}
	return page
}

// Window returns the bounds of 1-based page over n items. Out-of-range
// pages are clamped.
func Window(n, page, size int) Bounds {
	if size < 1 {
		size = 1
	}
	if n < 0 {
		n = 0
	}
	page = Clamp(page, n, size)

	start := (page - 1) * size
	end := start + size
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	return Bounds{Page: page, Start: start, End: end, TotalPages: TotalPages(n, size)}
}

// Slice returns the items of page and the bounds used.
func Slice[T any](items []T, page, size int) ([]T, Bounds) {
	b := Window(len(items), page, size)
	return items[b.Start:b.End], b
}
