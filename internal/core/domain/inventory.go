package domain

import (
	"bytes"
	"encoding/json"
)

// SKUPrefix is shared with the inventory service. Changing it breaks the
// catalog/inventory join on both sides.
const SKUPrefix = "PROD-"

type InventoryRecord struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Reserved int    `json:"reserved"`
}

// SKUFor derives the inventory SKU of a product.
func SKUFor(productID string) string {
	return SKUPrefix + productID
}

// InventoryShape identifies which of the accepted reply layouts a payload used.
type InventoryShape string

const (
	ShapeUnknown       InventoryShape = "unknown"
	ShapeWrappedList   InventoryShape = "data.inventories"
	ShapeWrappedRecord InventoryShape = "data.inventory"
	ShapeDataList      InventoryShape = "data[]"
	ShapeDataRecord    InventoryShape = "data{}"
	ShapeBareList      InventoryShape = "[]"
	ShapeBareRecord    InventoryShape = "{}"
)

// ClassifyInventoryReply finds the list or record carried by raw. Exactly one
// of list and record is set for a recognised shape; both are nil otherwise.
func ClassifyInventoryReply(raw json.RawMessage) (shape InventoryShape, list []json.RawMessage, record json.RawMessage) {
	raw = bytes.TrimSpace(raw)
	switch {
	case isArray(raw):
		if err := json.Unmarshal(raw, &list); err != nil {
			return ShapeUnknown, nil, nil
		}
		return ShapeBareList, list, nil
	case !isObject(raw):
		return ShapeUnknown, nil, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ShapeUnknown, nil, nil
	}
	data, wrapped := envelope["data"]
	if !wrapped {
		return ShapeBareRecord, nil, raw
	}

	data = bytes.TrimSpace(data)
	switch {
	case isArray(data):
		if err := json.Unmarshal(data, &list); err != nil {
			return ShapeUnknown, nil, nil
		}
		return ShapeDataList, list, nil
	case !isObject(data):
		return ShapeUnknown, nil, nil
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(data, &inner); err != nil {
		return ShapeUnknown, nil, nil
	}
	if items, ok := inner["inventories"]; ok && isArray(bytes.TrimSpace(items)) {
		if err := json.Unmarshal(items, &list); err != nil {
			return ShapeUnknown, nil, nil
		}
		return ShapeWrappedList, list, nil
	}
	if item, ok := inner["inventory"]; ok && isObject(bytes.TrimSpace(item)) {
		return ShapeWrappedRecord, nil, item
	}
	return ShapeDataRecord, nil, data
}

// NormalizeInventoryList returns every usable record in raw. A reply carrying
// a single record yields a one element list. Unrecognised shapes yield nil.
func NormalizeInventoryList(raw json.RawMessage) []InventoryRecord {
	_, list, record := ClassifyInventoryReply(raw)
	if record != nil {
		list = []json.RawMessage{record}
	}
	out := make([]InventoryRecord, 0, len(list))
	for _, item := range list {
		if rec, ok := decodeRecord(item); ok {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NormalizeInventoryRecord returns the record carried by raw, or nil when
// raw is a list, unrecognised, or lacks a sku.
func NormalizeInventoryRecord(raw json.RawMessage) *InventoryRecord {
	_, _, record := ClassifyInventoryReply(raw)
	if record == nil {
		return nil
	}
	rec, ok := decodeRecord(record)
	if !ok {
		return nil
	}
	return &rec
}

// FindInventoryRecord returns the usable record for sku carried by raw in any
// accepted shape, or nil when there is none.
func FindInventoryRecord(raw json.RawMessage, sku string) *InventoryRecord {
	for _, rec := range NormalizeInventoryList(raw) {
		if rec.SKU == sku {
			return &rec
		}
	}
	return nil
}

func decodeRecord(raw json.RawMessage) (InventoryRecord, bool) {
	var rec InventoryRecord
	if !isObject(bytes.TrimSpace(raw)) {
		return rec, false
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, false
	}
	return rec, rec.SKU != ""
}

func isArray(b []byte) bool  { return len(b) > 0 && b[0] == '[' }
func isObject(b []byte) bool { return len(b) > 0 && b[0] == '{' }
