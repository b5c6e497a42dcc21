package logs

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"miro-api/internal/util"
)

// Logger is what feature packages depend on to leave an audit trail.
type Logger interface {
	Log(log SystemLog, metadata interface{}) error
}

type LogService struct {
	DB *gorm.DB
	// Location gives calendar days in filters their timezone; nil means UTC.
	Location *time.Location
}

func (ls *LogService) Log(log SystemLog, metadata interface{}) error {
	var metaStr *string

	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			str := string(b)
			metaStr = &str
		}
	}

	newLog := SystemLog{
		Level:               log.Level,
		Service:             log.Service,
		UserEmail:           log.UserEmail,
		Action:              log.Action,
		Message:             log.Message,
		Metadata:            metaStr,
		CreatedAt:           time.Now(),
		Columns:             log.Columns,
		Filename:            log.Filename,
		PublishedTemplateID: log.PublishedTemplateID,
	}

	return ls.DB.Create(&newLog).Error
}

func trimmed(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

func (ls *LogService) GetLogs(input LogFilterInput) ([]SystemLog, LogAggregates, int64, int, error) {
	if input.Page <= 0 {
		input.Page = 1
	}
	if input.PageSize <= 0 || input.PageSize > 100 {
		input.PageSize = 20
	}

	base := ls.DB.Table("logs")

	// last 30 days unless a range is given
	if input.StartDate == nil && input.EndDate == nil {
		base = base.Where("logs.created_at >= ?", time.Now().AddDate(0, 0, -30))
	}

	if v, ok := trimmed(input.UserEmail); ok {
		base = base.Where("LOWER(logs.user_email) = LOWER(?)", v)
	}
	if v, ok := trimmed(input.Level); ok {
		base = base.Where("logs.level = ?", v)
	}
	if v, ok := trimmed(input.Service); ok {
		base = base.Where("logs.service = ?", v)
	}
	if v, ok := trimmed(input.Action); ok {
		base = base.Where("logs.action = ?", v)
	}
	if v, ok := trimmed(input.PublishedTemplateID); ok {
		base = base.Where("logs.published_template_id = ?", v)
	}
	if v, ok := trimmed(input.Filename); ok {
		base = base.Where("COALESCE(logs.filename,'') ILIKE ?", "%"+v+"%")
	}
	if len(input.Columns) > 0 {
		base = base.Where("logs.columns && ?", pq.Array(input.Columns))
	}

	dates, err := util.ParseDateRangeIn(input.StartDate, input.EndDate, ls.Location)
	if err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}
	if dates.HasStart {
		base = base.Where("logs.created_at >= ?", dates.Start)
	}
	if dates.HasEnd {
		base = base.Where("logs.created_at < ?", dates.EndExclusive)
	}

	if v, ok := trimmed(input.Search); ok {
		like := "%" + v + "%"
		base = base.Where(
			`CAST(logs.id AS TEXT) ILIKE ?
			 OR logs.level ILIKE ?
			 OR logs.service ILIKE ?
			 OR logs.action ILIKE ?
			 OR logs.message ILIKE ?
			 OR logs.user_email ILIKE ?
			 OR COALESCE(logs.filename,'') ILIKE ?
			 OR COALESCE(array_to_string(logs.columns, ','),'') ILIKE ?`,
			like, like, like, like, like, like, like, like,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(input.PageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	var rows []SystemLog
	if err := base.
		Session(&gorm.Session{}).
		Order("logs.created_at DESC").
		Limit(input.PageSize).
		Offset((input.Page - 1) * input.PageSize).
		Scan(&rows).Error; err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}

	aggs, err := ls.getAggregatesFromBase(base)
	if err != nil {
		return nil, LogAggregates{}, 0, 0, err
	}

	return rows, aggs, total, totalPages, nil
}

func (ls *LogService) getAggregatesFromBase(base *gorm.DB) (LogAggregates, error) {
	aggs := LogAggregates{}
	limit := 12

	sub := base.Session(&gorm.Session{}).
		Select("logs.user_email, logs.filename, logs.columns")

	derived := ls.DB.Table("(?) as x", sub)

	// By filename
	{
		var out []AggItem
		if err := derived.Session(&gorm.Session{}).
			Select("COALESCE(NULLIF(TRIM(x.filename), ''), 'No filename') AS label, COUNT(*) AS count").
			Group("label").
			Order("count DESC").
			Limit(limit).
			Scan(&out).Error; err != nil {
			return LogAggregates{}, err
		}
		aggs.ByFilename = append([]AggItem{}, out...)
	}

	// By user
	{
		var out []AggItem
		if err := derived.Session(&gorm.Session{}).
			Select("COALESCE(NULLIF(TRIM(x.user_email), ''), 'Unknown') AS label, COUNT(*) AS count").
			Group("label").
			Order("count DESC").
			Limit(limit).
			Scan(&out).Error; err != nil {
			return LogAggregates{}, err
		}
		aggs.ByUser = append([]AggItem{}, out...)
	}

	// By rejected column: unnest text[] and count rows without columns apart
	{
		var withCols []AggItem
		if err := derived.Session(&gorm.Session{}).
			Select("c AS label, COUNT(*) AS count").
			Joins("JOIN LATERAL unnest(x.columns) AS c ON TRUE").
			Group("c").
			Order("count DESC").
			Limit(limit).
			Scan(&withCols).Error; err != nil {
			return LogAggregates{}, err
		}

		var without []AggItem
		if err := derived.Session(&gorm.Session{}).
			Select("'No column' AS label, COUNT(*) AS count").
			Where("x.columns IS NULL OR array_length(x.columns, 1) IS NULL OR array_length(x.columns, 1) = 0").
			Group("label").
			Scan(&without).Error; err != nil {
			return LogAggregates{}, err
		}

		m := map[string]int64{}
		for _, row := range withCols {
			m[row.Label] += row.Count
		}
		for _, row := range without {
			m[row.Label] += row.Count
		}

		items := make([]AggItem, 0, len(m))
		for k, v := range m {
			items = append(items, AggItem{Label: k, Count: v})
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].Count == items[j].Count {
				return items[i].Label < items[j].Label
			}
			return items[i].Count > items[j].Count
		})
		if len(items) > limit {
			items = items[:limit]
		}
		aggs.ByColumn = items
	}

	return aggs, nil
}
