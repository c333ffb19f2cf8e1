// internal/domain/sales/request.go
package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ParseCommitRequest reads {"items":[{"shoeId":1,"quantity":2}, ...]}.
// Only shoeId and quantity are read; client prices and names are ignored
// because the committed price always comes from the catalog.
func ParseCommitRequest(body []byte) ([]LineInput, error) {
	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &InvalidLineQuantityError{Line: -1, Reason: "malformed request body"}
	}
	if len(envelope.Items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]LineInput, len(envelope.Items))
	fields := make([]map[string]json.RawMessage, len(envelope.Items))

	for i, raw := range envelope.Items {
		if err := json.Unmarshal(raw, &fields[i]); err != nil || fields[i] == nil {
			return nil, &InvalidLineQuantityError{Line: i, Reason: "line is not an object"}
		}
		qty, err := positiveInt(fields[i]["quantity"])
		if err != nil {
			return nil, &InvalidLineQuantityError{Line: i, Reason: "quantity " + err.Error()}
		}
		if qty > MaxLineQuantity {
			return nil, &InvalidLineQuantityError{Line: i, Reason: fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity)}
		}
		lines[i].Quantity = int(qty)
	}

	var malformed []int
	for i := range fields {
		id, err := positiveInt(fields[i]["shoeId"])
		if err != nil || id > int64(^uint32(0)) {
			malformed = append(malformed, i)
			continue
		}
		lines[i].ShoeID = uint(id)
	}
	if len(malformed) > 0 {
		return nil, &UnknownItemError{MalformedLines: malformed}
	}

	return lines, nil
}

// positiveInt accepts only a JSON integer literal greater than zero
func positiveInt(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("is missing")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("is malformed")
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("must be a number")
	}
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a whole number")
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}
