package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var errAmountNotInteger = errors.New("amount is not a whole number")

// bindJSON decodes an optional JSON body. An empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ErrInvalidRequest
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidRequest
	}
	return nil
}

// parseAmount accepts a JSON number or numeric string holding a whole number
// of rupiah.
func parseAmount(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, errAmountNotInteger
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errAmountNotInteger
		}
		text = strings.TrimSpace(s)
	}

	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsInteger() {
		return 0, errAmountNotInteger
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || d.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, errAmountNotInteger
	}
	return d.IntPart(), nil
}
