package backtest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradedash/internal/metrics"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

//go:embed schema/document.json
var documentSchemaJSON string

var (
	schemaOnce     sync.Once
	documentSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		documentSchema, schemaErr = jsonschema.CompileString("document.json", documentSchemaJSON)
	})
	return documentSchema, schemaErr
}

// Format 是输入文档的编码。
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath 按扩展名推断编码，未知扩展名按 JSON 处理。
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document 是一次回测评估的完整输入。
type Document struct {
	Name                string                `json:"name,omitempty"`
	InitialCapital      float64               `json:"initial_capital"`
	PeriodDays          float64               `json:"period_days,omitempty"`
	AnnualizationFactor float64               `json:"annualization_factor,omitempty"`
	MinPeriodDays       *float64              `json:"min_period_days,omitempty"`
	TargetReturn        *float64              `json:"target_return,omitempty"`
	Trades              []metrics.Trade       `json:"trades"`
	EquityCurve         []metrics.EquityPoint `json:"equity_curve"`
}

// Options 用文档中的覆盖项修正 base。
func (d Document) Options(base metrics.Options) metrics.Options {
	out := base
	if d.AnnualizationFactor > 0 {
		out.AnnualizationFactor = d.AnnualizationFactor
	}
	if d.MinPeriodDays != nil {
		out.MinPeriodDays = *d.MinPeriodDays
	}
	if d.TargetReturn != nil {
		out.TargetReturn = *d.TargetReturn
	}
	return out
}

// ResolvePeriodDays returns PeriodDays, or the equity-curve span in days when
// it is not set. A curve spanning no time yields 0, which Compute rejects.
func (d Document) ResolvePeriodDays() float64 {
	if d.PeriodDays > 0 {
		return d.PeriodDays
	}
	if len(d.EquityCurve) < 2 {
		return 0
	}
	span := d.EquityCurve[len(d.EquityCurve)-1].Timestamp.Sub(d.EquityCurve[0].Timestamp)
	return span.Hours() / 24
}

// Limits 限制单个文档的规模。
type Limits struct {
	MaxTrades       int
	MaxEquityPoints int
}

// DecodeDocument 解析 JSON/YAML 文档：YAML 先转成 JSON，再统一做 gjson 预检与 schema 校验。
// 所有失败都包装为 metrics.ErrInvalidInput。
func DecodeDocument(raw []byte, format Format, limits Limits) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Document{}, &metrics.InputError{Field: "document", Reason: "is empty"}
	}
	if format == FormatYAML {
		converted, err := yamlToJSON(raw)
		if err != nil {
			return Document{}, err
		}
		raw = converted
	}
	if err := precheck(raw, limits); err != nil {
		return Document{}, err
	}
	if err := validateSchema(raw); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, &metrics.InputError{Field: "document", Reason: err.Error()}
	}
	if err := CheckTimeRange(doc.Trades, doc.EquityCurve); err != nil {
		return Document{}, err
	}
	doc.Trades = metrics.NormalizeTrades(doc.Trades)
	return doc, nil
}

var (
	minStorableTime = time.Unix(0, math.MinInt64).UTC()
	maxStorableTime = time.Unix(0, math.MaxInt64).UTC()
)

// CheckTimeRange 拒绝无法用 int64 纳秒表示的时间戳（约 1677-09-21 至 2262-04-11）。
// 交易的零值时间表示未设置，不参与检查。
func CheckTimeRange(trades []metrics.Trade, curve []metrics.EquityPoint) error {
	for i, p := range curve {
		if !storableTime(p.Timestamp) {
			return &metrics.InputError{Field: fmt.Sprintf("equity_curve[%d].timestamp", i), Reason: outOfRangeReason(p.Timestamp)}
		}
	}
	for i, t := range trades {
		if !t.EntryTime.IsZero() && !storableTime(t.EntryTime) {
			return &metrics.InputError{Field: fmt.Sprintf("trades[%d].entry_time", i), Reason: outOfRangeReason(t.EntryTime)}
		}
		if !t.ExitTime.IsZero() && !storableTime(t.ExitTime) {
			return &metrics.InputError{Field: fmt.Sprintf("trades[%d].exit_time", i), Reason: outOfRangeReason(t.ExitTime)}
		}
	}
	return nil
}

func storableTime(t time.Time) bool {
	return !t.Before(minStorableTime) && !t.After(maxStorableTime)
}

func outOfRangeReason(t time.Time) string {
	return fmt.Sprintf("%s is outside the supported range %s .. %s",
		t.Format(time.RFC3339Nano), minStorableTime.Format(time.RFC3339), maxStorableTime.Format(time.RFC3339))
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var node any
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, &metrics.InputError{Field: "document", Reason: "malformed YAML: " + err.Error()}
	}
	out, err := json.Marshal(node)
	if err != nil {
		return nil, &metrics.InputError{Field: "document", Reason: "YAML is not representable as JSON: " + err.Error()}
	}
	return out, nil
}

func precheck(raw []byte, limits Limits) error {
	if !gjson.ValidBytes(raw) {
		return &metrics.InputError{Field: "document", Reason: "malformed JSON"}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return &metrics.InputError{Field: "document", Reason: "root must be an object"}
	}
	if n := root.Get("trades.#").Int(); limits.MaxTrades > 0 && n > int64(limits.MaxTrades) {
		return &metrics.InputError{Field: "trades", Reason: fmt.Sprintf("has %d entries, limit is %d", n, limits.MaxTrades)}
	}
	if n := root.Get("equity_curve.#").Int(); limits.MaxEquityPoints > 0 && n > int64(limits.MaxEquityPoints) {
		return &metrics.InputError{Field: "equity_curve", Reason: fmt.Sprintf("has %d points, limit is %d", n, limits.MaxEquityPoints)}
	}
	return nil
}

func validateSchema(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return &metrics.InputError{Field: "document", Reason: err.Error()}
	}
	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := deepestCause(ve)
			return &metrics.InputError{Field: instanceField(leaf.InstanceLocation), Reason: leaf.Message}
		}
		return &metrics.InputError{Field: "document", Reason: err.Error()}
	}
	return nil
}

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// instanceField 把 JSON pointer（/trades/0/direction）转成 trades[0].direction。
func instanceField(ptr string) string {
	ptr = strings.Trim(ptr, "/")
	if ptr == "" {
		return "document"
	}
	var b strings.Builder
	for i, part := range strings.Split(ptr, "/") {
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
