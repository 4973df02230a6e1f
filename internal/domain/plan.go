package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category категория продукта
type Category string

const (
	CategoryTV       Category = "TV"
	CategoryMobile   Category = "MOBILE"
	CategoryInternet Category = "INTERNET"
)

// Categories все известные категории
var Categories = []Category{CategoryTV, CategoryMobile, CategoryInternet}

// ParseCategory приводит строку к Category, регистр не важен
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryTV, CategoryMobile, CategoryInternet:
		return c, nil
	}
	return "", ErrInvalidInput
}

// Hierarchical сообщает, есть ли у планов категории упорядоченные уровни.
// Уровни есть только у TV и INTERNET.
func (c Category) Hierarchical() bool {
	return c == CategoryTV || c == CategoryInternet
}

// PlanCode код плана из каталога
type PlanCode string

const (
	PlanTVBasic    PlanCode = "TV_BASIC"
	PlanTVStandard PlanCode = "TV_STANDARD"
	PlanTVPremium  PlanCode = "TV_PREMIUM"

	PlanPakoS  PlanCode = "PAKO_S"
	PlanPakoM  PlanCode = "PAKO_M"
	PlanPakoL  PlanCode = "PAKO_L"
	PlanPakoXL PlanCode = "PAKO_XL"

	PlanWifiBasic    PlanCode = "WIFI_BASIC"
	PlanWifiStandard PlanCode = "WIFI_STANDARD"
	PlanWifiPremium  PlanCode = "WIFI_PREMIUM"
)

// Tier уровень плана внутри иерархической категории
type Tier int

const (
	TierNone Tier = iota
	TierBasic
	TierStandard
	TierPremium
)

type planCodeInfo struct {
	category Category
	tier     Tier
}

// Закрытый набор кодов. Таблица неизменяемая, наружу не отдаётся.
var planCodes = map[PlanCode]planCodeInfo{
	PlanTVBasic:      {CategoryTV, TierBasic},
	PlanTVStandard:   {CategoryTV, TierStandard},
	PlanTVPremium:    {CategoryTV, TierPremium},
	PlanPakoS:        {CategoryMobile, TierNone},
	PlanPakoM:        {CategoryMobile, TierNone},
	PlanPakoL:        {CategoryMobile, TierNone},
	PlanPakoXL:       {CategoryMobile, TierNone},
	PlanWifiBasic:    {CategoryInternet, TierBasic},
	PlanWifiStandard: {CategoryInternet, TierStandard},
	PlanWifiPremium:  {CategoryInternet, TierPremium},
}

// PlanCodes возвращает все коды каталога
func PlanCodes() []PlanCode {
	return []PlanCode{
		PlanTVBasic, PlanTVStandard, PlanTVPremium,
		PlanPakoS, PlanPakoM, PlanPakoL, PlanPakoXL,
		PlanWifiBasic, PlanWifiStandard, PlanWifiPremium,
	}
}

// ParsePlanCode проверяет код по закрытому набору, регистр важен.
// Неизвестный код означает отсутствующий план.
func ParsePlanCode(s string) (PlanCode, error) {
	code := PlanCode(s)
	if _, ok := planCodes[code]; !ok {
		return "", NewPlanNotFoundError(s)
	}
	return code, nil
}

// Valid сообщает, входит ли код в каталог
func (c PlanCode) Valid() bool {
	_, ok := planCodes[c]
	return ok
}

// Category категория, к которой относится код
func (c PlanCode) Category() Category {
	return planCodes[c].category
}

// Tier уровень кода, TierNone для MOBILE и неизвестных кодов
func (c PlanCode) Tier() Tier {
	return planCodes[c].tier
}

// ComparePlans возвращает разницу уровней candidate - current.
// 0 если коды из разных иерархий, неиерархические или неизвестные.
func ComparePlans(current, candidate PlanCode) int {
	cur, ok := planCodes[current]
	if !ok || !cur.category.Hierarchical() {
		return 0
	}
	cand, ok := planCodes[candidate]
	if !ok || cand.category != cur.category {
		return 0
	}
	return int(cand.tier) - int(cur.tier)
}

// IsUpgrade true, если candidate выше current в одной иерархии
func IsUpgrade(current, candidate PlanCode) bool {
	return ComparePlans(current, candidate) > 0
}

// IsDowngrade true, если candidate ниже current в одной иерархии
func IsDowngrade(current, candidate PlanCode) bool {
	return ComparePlans(current, candidate) < 0
}

// Plan представляет план из каталога
type Plan struct {
	ID           int64           `json:"id" db:"id"`
	Code         PlanCode        `json:"code" db:"code"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description,omitempty" db:"description"`
	Category     Category        `json:"category" db:"category"`
	MonthlyPrice decimal.Decimal `json:"monthly_price" db:"monthly_price"`
	DurationDays int             `json:"duration_days" db:"duration_days"`
	Features     string          `json:"features,omitempty" db:"features"`
	Active       bool            `json:"active" db:"active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Period возвращает конец периода, начинающегося в start.
// MOBILE считается в днях плана, TV и INTERNET в календарных месяцах.
func (p Plan) Period(start time.Time, months int) time.Time {
	if p.Category == CategoryMobile {
		return start.AddDate(0, 0, p.DurationDays)
	}
	return AddMonths(start, months)
}

// AddMonths прибавляет календарные месяцы. День, которого нет в целевом
// месяце, прижимается к последнему дню: 31 января + 1 месяц = 28 (29) февраля.
// Время суток и зона сохраняются.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	// Нулевой день следующего месяца это последний день текущего
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Price стоимость периода. MOBILE оплачивается фиксированно за цикл.
func (p Plan) Price(months int) decimal.Decimal {
	if p.Category == CategoryMobile {
		return p.MonthlyPrice
	}
	return p.MonthlyPrice.Mul(decimal.NewFromInt(int64(months)))
}
