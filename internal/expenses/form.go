package expenses

import (
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// fileFields lists the multipart keys accepted for each file list.
var (
	createFileFields = []string{"attachments", "attachments[]"}
	updateFileFields = []string{"newAttachments", "newAttachments[]"}
)

type formValues map[string][]string

func (v formValues) lookup(key string) (string, bool) {
	vals, ok := v[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func (v formValues) get(key string) string {
	s, _ := v.lookup(key)
	return s
}

func parseFields(form *multipart.Form) (Fields, error) {
	v := formValues(form.Value)
	var f Fields

	for _, key := range []string{"expenseTypeId", "title", "date", "amount", "paymentMode", "billAvailable", "userEmail"} {
		if _, ok := v.lookup(key); !ok {
			return Fields{}, fmt.Errorf("%w: %s is required", ErrValidation, key)
		}
	}

	var err error
	if f.ExpenseTypeID, err = parseTypeID(v.get("expenseTypeId")); err != nil {
		return Fields{}, err
	}
	if f.Date, err = parseDate(v.get("date")); err != nil {
		return Fields{}, err
	}
	if f.Amount, err = parseAmount(v.get("amount")); err != nil {
		return Fields{}, err
	}
	if f.BillAvailable, err = parseBool("billAvailable", v.get("billAvailable")); err != nil {
		return Fields{}, err
	}

	f.Title = v.get("title")
	f.PaymentMode = v.get("paymentMode")
	f.UserEmail = v.get("userEmail")
	f.Description = v.get("description")
	f.CarNumber = v.get("carNumber")
	f.ServiceType = v.get("serviceType")
	f.Location = v.get("location")
	f.EquipmentName = v.get("equipmentName")
	f.EquipmentType = v.get("equipmentType")
	return f, nil
}

func parsePatch(form *multipart.Form) (Patch, error) {
	v := formValues(form.Value)
	var p Patch

	if s, ok := v.lookup("expenseTypeId"); ok {
		id, err := parseTypeID(s)
		if err != nil {
			return Patch{}, err
		}
		p.ExpenseTypeID = &id
	}
	if s, ok := v.lookup("date"); ok {
		d, err := parseDate(s)
		if err != nil {
			return Patch{}, err
		}
		p.Date = &d
	}
	if s, ok := v.lookup("amount"); ok {
		a, err := parseAmount(s)
		if err != nil {
			return Patch{}, err
		}
		p.Amount = &a
	}
	if s, ok := v.lookup("billAvailable"); ok {
		b, err := parseBool("billAvailable", s)
		if err != nil {
			return Patch{}, err
		}
		p.BillAvailable = &b
	}

	strs := map[string]**string{
		"title":         &p.Title,
		"paymentMode":   &p.PaymentMode,
		"userEmail":     &p.UserEmail,
		"description":   &p.Description,
		"carNumber":     &p.CarNumber,
		"serviceType":   &p.ServiceType,
		"location":      &p.Location,
		"equipmentName": &p.EquipmentName,
		"equipmentType": &p.EquipmentType,
	}
	for key, dst := range strs {
		if s, ok := v.lookup(key); ok {
			*dst = &s
		}
	}
	return p, nil
}

func fileHeaders(form *multipart.Form, keys []string) []*multipart.FileHeader {
	var headers []*multipart.FileHeader
	for _, key := range keys {
		headers = append(headers, form.File[key]...)
	}
	return headers
}

func parseTypeID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid expenseTypeId", ErrValidation)
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
}

func parseAmount(s string) (float64, error) {
	a, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return a, nil
}

func parseBool(field, s string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s %q", ErrValidation, field, s)
	}
	return b, nil
}
