package service

import (
	"math"
	"strconv"
	"strings"

	"ProjectsAPI/internal/model"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// positiveOr разбирает число (в том числе "2.0" и "1e1") и возвращает его,
// только если оно целое и > 0; иначе def. Слишком большие значения ограничиваются math.MaxInt
func positiveOr(raw string, def int) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 || f != math.Trunc(f) {
		return def
	}
	if f >= math.MaxInt {
		return math.MaxInt
	}
	return int(f)
}

// NormalizeListQuery превращает сырые параметры списка в фильтр и окно страницы.
// Ошибок не бывает: некорректные page/pageSize заменяются значениями по умолчанию,
// пустые status и q не накладывают ограничений
func NormalizeListQuery(q model.ListQuery) model.ListParams {
	page := positiveOr(q.Page, defaultPage)
	pageSize := positiveOr(q.PageSize, defaultPageSize)

	// при переполнении окно всё равно за пределами любых данных
	skip := math.MaxInt
	if page-1 <= math.MaxInt/pageSize {
		skip = (page - 1) * pageSize
	}

	return model.ListParams{
		Filter: model.ProjectFilter{
			Status: q.Status,
			Q:      q.Q,
		},
		Page:     page,
		PageSize: pageSize,
		Skip:     skip,
	}
}
