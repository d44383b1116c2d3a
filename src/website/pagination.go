package website

import (
	"strconv"

	"git.automatex.dev/stem/stemweb/src/templates"
	"git.automatex.dev/stem/stemweb/src/utils"
)

// parsePageParam reads a 1-based page number. An empty param means page 1.
func parsePageParam(pageParam string) (page int, ok bool) {
	if pageParam == "" {
		return 1, true
	}
	page, err := strconv.Atoi(pageParam)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

func getPagination(current, totalItems, itemsPerPage int, buildUrl func(page int) string) templates.Pagination {
	totalPages := utils.NumPages(totalItems, itemsPerPage)
	current = utils.IntClamp(1, current, totalPages)

	pagination := templates.Pagination{
		Current: current,
		Total:   totalPages,

		FirstUrl: buildUrl(1),
		LastUrl:  buildUrl(totalPages),
	}
	if current > 1 {
		pagination.PreviousUrl = buildUrl(current - 1)
	}
	if current < totalPages {
		pagination.NextUrl = buildUrl(current + 1)
	}
	return pagination
}
