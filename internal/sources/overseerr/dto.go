package overseerr

import (
	"bytes"
	"encoding/json"
	"strings"
)

type pageResponse struct {
	PageInfo *pageInfo    `json:"pageInfo"`
	Results  []requestDTO `json:"results"`
}

type pageInfo struct {
	Pages    int `json:"pages"`
	PageSize int `json:"pageSize"`
	Results  int `json:"results"`
	Page     int `json:"page"`
}

type requestDTO struct {
	CreatedAt string   `json:"createdAt"`
	Media     mediaDTO `json:"media"`
}

type mediaDTO struct {
	TVDBID    flexString      `json:"tvdbId"`
	RatingKey flexString      `json:"ratingKey"`
	Name      string          `json:"name"`
	Seasons   json.RawMessage `json:"seasons"`
}

func (m mediaDTO) isTV() bool {
	return (m.TVDBID != "" && m.TVDBID != "0") || len(m.Seasons) > 0
}

// flexString accepts JSON strings and numbers; null decodes to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
