package orm

// Pagination is one page of a query result.
type Pagination[T any] struct {
	Page    int
	PerPage int
	Total   int64
	Items   []*T
}

// Pages is the total number of pages.
func (p *Pagination[T]) Pages() int {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

func (p *Pagination[T]) HasPrev() bool { return p.Page > 1 }

func (p *Pagination[T]) HasNext() bool { return p.Page < p.Pages() }

func (p *Pagination[T]) PrevNum() int {
	if !p.HasPrev() {
		return 0
	}
	return p.Page - 1
}

func (p *Pagination[T]) NextNum() int {
	if !p.HasNext() {
		return 0
	}
	return p.Page + 1
}

// IterPages lists page numbers for a pager, with 0 marking a gap. Edge
// pages and pages around the current one are always included.
func (p *Pagination[T]) IterPages(leftEdge, leftCurrent, rightCurrent, rightEdge int) []int {
	pages := p.Pages()
	var out []int
	last := 0
	for num := 1; num <= pages; num++ {
		if num <= leftEdge ||
			(num > p.Page-leftCurrent-1 && num < p.Page+rightCurrent) ||
			num > pages-rightEdge {
			if last+1 != num {
				out = append(out, 0)
			}
			out = append(out, num)
			last = num
		}
	}
	return out
}

// Iter is IterPages with edges of 2 and a window of 2 before and 5 after
// the current page.
func (p *Pagination[T]) Iter() []int {
	return p.IterPages(2, 2, 5, 2)
}
