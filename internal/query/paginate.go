package query

import "github.com/sellis/critterdex/internal/models"

// PageInfo describes one pagination window over a filtered result.
type PageInfo struct {
	Total       int  `json:"total"`
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Paginate slices a filtered-and-sorted result by (offset, limit). A
// non-positive limit returns everything from offset onward; an offset past
// the end yields an empty page, not an error.
func Paginate(records []models.CreatureRecord, offset, limit int) ([]models.CreatureRecord, PageInfo) {
	total := len(records)
	if offset < 0 {
		offset = 0
	}

	info := PageInfo{
		Total:       total,
		Offset:      offset,
		Limit:       limit,
		HasPrevious: offset > 0,
	}

	if offset >= total {
		return []models.CreatureRecord{}, info
	}

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	info.HasNext = end < total

	page := make([]models.CreatureRecord, end-offset)
	copy(page, records[offset:end])
	return page, info
}
