package users

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/lyfeumbria/manager/records"
)

type profileDocument struct {
	Email     string    `mapstructure:"email"`
	Name      string    `mapstructure:"name"`
	Role      string    `mapstructure:"role"`
	CreatedAt time.Time `mapstructure:"createdAt"`
}

type credentialDocument struct {
	UserID       string `mapstructure:"userId"`
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"passwordHash"`
}

// DecodeProfile turns a stored document into a Profile. A missing email fails the decode;
// an unknown role becomes RoleUser and an empty name becomes DefaultName.
func DecodeProfile(id string, doc records.Document) (*Profile, error) {
	var raw profileDocument
	if err := decode(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	if raw.Email == "" {
		return nil, fmt.Errorf("decode profile %s: email is required", id)
	}

	name := raw.Name
	if name == "" {
		name = DefaultName
	}
	return &Profile{
		ID:        id,
		Email:     raw.Email,
		Name:      name,
		Role:      ParseRole(raw.Role),
		CreatedAt: raw.CreatedAt,
	}, nil
}

func encodeProfile(p *Profile) records.Document {
	return records.Document{
		"email":     p.Email,
		"name":      p.Name,
		"role":      string(p.Role),
		"createdAt": p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeCredentials(doc records.Document) (*Credentials, error) {
	var raw credentialDocument
	if err := decode(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if raw.UserID == "" || raw.PasswordHash == "" {
		return nil, fmt.Errorf("decode credentials: userId and passwordHash are required")
	}
	return &Credentials{UserID: raw.UserID, Email: raw.Email, PasswordHash: raw.PasswordHash}, nil
}

func encodeCredentials(c *Credentials) records.Document {
	return records.Document{
		"userId":       c.UserID,
		"email":        NormalizeEmail(c.Email),
		"passwordHash": c.PasswordHash,
	}
}

func decode(input any, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     output,
		DecodeHook: timeHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// timeHookFunc accepts RFC3339 strings and epoch milliseconds for time.Time fields.
func timeHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			if v == "" {
				return time.Time{}, nil
			}
			return time.Parse(time.RFC3339Nano, v)
		case float64:
			return time.UnixMilli(int64(v)).UTC(), nil
		case int64:
			return time.UnixMilli(v).UTC(), nil
		case int:
			return time.UnixMilli(int64(v)).UTC(), nil
		case json.Number:
			ms, err := v.Int64()
			if err != nil {
				return nil, err
			}
			return time.UnixMilli(ms).UTC(), nil
		}
		return data, nil
	}
}
