package rpc

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"lensfrens/go-backend/pkg/models"
)

var errInvalidParams = errors.New("invalid params")

type draftParams struct {
	Text  string `json:"text"`
	Media *struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		Data        string `json:"data"`
	} `json:"media,omitempty"`
}

// decodeDraftParams accepts either {"text":..., "media":{...}} or a
// one-element array holding that object. Media data is base64.
func decodeDraftParams(raw json.RawMessage) (models.DraftPost, error) {
	var params draftParams
	var arr []draftParams
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) != 1 {
			return models.DraftPost{}, errInvalidParams
		}
		params = arr[0]
	} else if err := json.Unmarshal(raw, &params); err != nil {
		return models.DraftPost{}, errInvalidParams
	}

	draft := models.DraftPost{Text: params.Text}
	if params.Media != nil && strings.TrimSpace(params.Media.Data) != "" {
		data, err := base64.StdEncoding.DecodeString(params.Media.Data)
		if err != nil {
			return models.DraftPost{}, errInvalidParams
		}
		draft.Media = &models.MediaFile{
			Name:        strings.TrimSpace(params.Media.Name),
			ContentType: strings.TrimSpace(params.Media.ContentType),
			Data:        data,
		}
	}
	return draft, nil
}

// decodeCursorParams accepts [cursor], {"cursor": n} or no params.
func decodeCursorParams(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var arr []int64
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) > 1 || (len(arr) == 1 && arr[0] < 0) {
			return 0, errInvalidParams
		}
		if len(arr) == 0 {
			return 0, nil
		}
		return arr[0], nil
	}
	var obj struct {
		Cursor int64 `json:"cursor"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Cursor < 0 {
		return 0, errInvalidParams
	}
	return obj.Cursor, nil
}
