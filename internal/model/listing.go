package model

import (
	"strings"
	"unicode/utf8"
)

// ListQuery сырые параметры запроса списка в том виде, в каком они пришли от клиента
type ListQuery struct {
	Status   string
	Q        string
	Page     string
	PageSize string
}

// ProjectFilter предикат отбора: пустое поле не накладывает ограничений
type ProjectFilter struct {
	Status string
	Q      string
}

// MatchesNothing сообщает, что фильтр заведомо не совпадёт ни с одной записью:
// статус вне перечисления или строка, которую нельзя сохранить в текстовой колонке
// (невалидный UTF-8, NUL)
func (f ProjectFilter) MatchesNothing() bool {
	if f.Status != "" && (!Status(f.Status).Valid() || !storableText(f.Status)) {
		return true
	}
	return f.Q != "" && !storableText(f.Q)
}

func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// ListParams нормализованные параметры выборки
// Skip вычисляется из Page и PageSize
type ListParams struct {
	Filter   ProjectFilter
	Page     int
	PageSize int
	Skip     int
}

// ProjectPage ответ на запрос списка
type ProjectPage struct {
	Data     []Project `json:"data"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}
