// Package metadata encodes an arbitrarily large checkout payload into a
// payment provider's key/value metadata store and reconstructs it after the
// asynchronous return redirect.
//
// The provider imposes a hard limit of 500 characters per value and 50 keys
// per session. Payloads whose base64 form fits in one value are stored under
// a single "orderData" key; larger payloads are split into consecutive
// 500-character chunks under "orderData_{i}" with the chunk count recorded
// under "chunkCount". A handful of small denormalized fields (userId,
// userEmail, totalPrice, source) are always written as plain keys for cheap
// inspection in the provider dashboard.
package metadata

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/flyerapp/fulfillment/internal/domain/order"
)

// Provider-imposed metadata constraints.
const (
	MaxValueLen = 500
	MaxKeys     = 50

	keyOrderData  = "orderData"
	keyChunkCount = "chunkCount"
	keyUserID     = "userId"
	keyUserEmail  = "userEmail"
	keyTotalPrice = "totalPrice"
	keySource     = "source"
)

// maxChunks is the number of orderData_{i} slots available after reserving
// keys for chunkCount and the denormalized convenience fields.
const maxChunks = MaxKeys - 5

// ErrPayloadTooLarge is returned when the encoded payload cannot fit within
// the provider's metadata capacity. Exceeding the budget is a caller error,
// never a silent truncation.
var ErrPayloadTooLarge = errors.New("encoded payload exceeds metadata capacity")

// ErrNoOrderData is returned by Decode when the metadata carries neither an
// orderData key nor a chunk sequence.
var ErrNoOrderData = errors.New("order data not found in metadata")

// DecodeError indicates the reconstructed metadata could not be decoded back
// into a payload. It is treated as data corruption and reported to the
// caller, never silently defaulted.
type DecodeError struct {
	Stage string // "base64" or "json"
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode order data (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes the payload to JSON, base64-encodes it, and lays it out
// across metadata keys, chunking when the encoded form exceeds MaxValueLen.
func Encode(p *order.CheckoutPayload, totalPrice decimal.Decimal) (map[string]string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	md := map[string]string{
		keyUserID:     p.UserID,
		keyUserEmail:  p.UserEmail,
		keyTotalPrice: totalPrice.String(),
		keySource:     p.Source,
	}

	if len(encoded) <= MaxValueLen {
		md[keyOrderData] = encoded
		return md, nil
	}

	if len(encoded) > maxChunks*MaxValueLen {
		return nil, ErrPayloadTooLarge
	}

	var count int
	for i := 0; i < len(encoded); i += MaxValueLen {
		end := min(i+MaxValueLen, len(encoded))
		md[fmt.Sprintf("%s_%d", keyOrderData, count)] = encoded[i:end]
		count++
	}
	md[keyChunkCount] = strconv.Itoa(count)

	return md, nil
}

// Decode reconstructs the raw JSON payload from session metadata. When a
// chunk sequence is present the chunks are concatenated in order; missing
// chunks are skipped rather than treated as fatal, tolerating provider-side
// truncation. The result is guaranteed to be valid JSON.
func Decode(md map[string]string) ([]byte, error) {
	encoded, ok := md[keyOrderData]

	if cc, chunked := md[keyChunkCount]; chunked {
		count, err := strconv.Atoi(cc)
		if err != nil {
			return nil, &DecodeError{Stage: "json", Err: errors.Wrap(err, "invalid chunk count")}
		}
		var joined []byte
		for i := range count {
			if chunk, present := md[fmt.Sprintf("%s_%d", keyOrderData, i)]; present {
				joined = append(joined, chunk...)
			}
		}
		encoded, ok = string(joined), len(joined) > 0
	}

	if !ok || encoded == "" {
		return nil, ErrNoOrderData
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecodeError{Stage: "base64", Err: err}
	}
	if !json.Valid(data) {
		return nil, &DecodeError{Stage: "json", Err: errors.New("reconstructed payload is not valid JSON")}
	}

	return data, nil
}

// DecodePayload is Decode followed by payload parsing.
func DecodePayload(md map[string]string) (*order.CheckoutPayload, error) {
	raw, err := Decode(md)
	if err != nil {
		return nil, err
	}
	p, err := order.ParsePayload(raw)
	if err != nil {
		return nil, &DecodeError{Stage: "json", Err: err}
	}
	return p, nil
}
