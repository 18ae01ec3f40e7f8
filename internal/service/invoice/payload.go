package invoice

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/cupping-console/internal/model"
)

// PayloadStrategy renders the scannable part of an invoice.
type PayloadStrategy interface {
	Encode(inv *model.Invoice) (string, error)
}

// TextPayload is a newline delimited "key: value" record.
type TextPayload struct{}

func (TextPayload) Encode(inv *model.Invoice) (string, error) {
	lines := []string{
		"Invoice: " + inv.InvoiceNumber,
		"Date: " + inv.IssuedAt.Format("2006-01-02 15:04"),
	}
	if inv.Taxable {
		lines = append(lines,
			"Seller: "+inv.SellerName,
			"Tax ID: "+inv.TaxID,
			"VAT: "+inv.Tax.StringFixed(2),
		)
	}
	lines = append(lines, "Total: "+inv.Total.StringFixed(2))
	return strings.Join(lines, "\n"), nil
}

// TLV tags of the tax-authority QR scheme.
const (
	TagSeller byte = iota + 1
	TagTaxID
	TagTimestamp
	TagTotal
	TagTax
)

// TLVPayload encodes seller, tax id, timestamp, total and tax as
// tag-length-value fields, base64 wrapped.
type TLVPayload struct{}

func (TLVPayload) Encode(inv *model.Invoice) (string, error) {
	fields := []struct {
		tag   byte
		value string
	}{
		{TagSeller, inv.SellerName},
		{TagTaxID, inv.TaxID},
		{TagTimestamp, inv.IssuedAt.Format(time.RFC3339)},
		{TagTotal, inv.Total.StringFixed(2)},
		{TagTax, inv.Tax.StringFixed(2)},
	}

	var buf []byte
	for _, f := range fields {
		if len(f.value) > 255 {
			return "", fmt.Errorf("tlv field %d exceeds 255 bytes", f.tag)
		}
		buf = append(buf, f.tag, byte(len(f.value)))
		buf = append(buf, f.value...)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// DecodeTLV reverses TLVPayload, keyed by tag.
func DecodeTLV(payload string) (map[byte]string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	out := make(map[byte]string)
	for i := 0; i < len(raw); {
		if i+2 > len(raw) {
			return nil, fmt.Errorf("truncated tlv header at offset %d", i)
		}
		tag, n := raw[i], int(raw[i+1])
		i += 2
		if i+n > len(raw) {
			return nil, fmt.Errorf("truncated tlv value for tag %d", tag)
		}
		out[tag] = string(raw[i : i+n])
		i += n
	}
	return out, nil
}
