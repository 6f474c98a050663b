package models

import (
	"strings"
)

// Session holds the API tokens. Address is the account the tokens were
// issued to; the API does not return it.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Address      string `json:"-"`
}

func (s *Session) Valid() bool {
	return s != nil && strings.TrimSpace(s.AccessToken) != ""
}

type Profile struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

type MediaFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

type DraftPost struct {
	Text  string     `json:"text"`
	Media *MediaFile `json:"media,omitempty"`
}

func (d DraftPost) HasMedia() bool {
	return d.Media != nil && len(d.Media.Data) > 0
}

const (
	MainContentFocusVideo    = "VIDEO"
	MainContentFocusTextOnly = "TEXT_ONLY"
	MetadataVersion          = "2.0.0"
)

type MetadataAttribute struct {
	DisplayType string `json:"displayType,omitempty"`
	TraitType   string `json:"traitType,omitempty"`
	Value       string `json:"value"`
}

type MetadataMedia struct {
	Type string `json:"type"`
	Item string `json:"item"`
}

// Metadata is the publication metadata document (Lens metadata v2) uploaded to
// the content store and referenced by the post content URI.
type Metadata struct {
	Version          string              `json:"version"`
	MetadataID       string              `json:"metadata_id"`
	Content          string              `json:"content"`
	Description      string              `json:"description"`
	Name             string              `json:"name"`
	ExternalURL      string              `json:"external_url"`
	MainContentFocus string              `json:"mainContentFocus"`
	Attributes       []MetadataAttribute `json:"attributes"`
	Locale           string              `json:"locale"`
	Media            []MetadataMedia     `json:"media"`
	AppID            string              `json:"appId"`
}

type MetadataValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type DispatcherStatus struct {
	Address     string `json:"address"`
	CanUseRelay bool   `json:"canUseRelay"`
}

type FreeCollectModule struct {
	FollowerOnly bool `json:"followerOnly"`
}

type CollectModuleParams struct {
	FreeCollectModule   *FreeCollectModule `json:"freeCollectModule,omitempty"`
	RevertCollectModule *bool              `json:"revertCollectModule,omitempty"`
}

type ReferenceModuleParams struct {
	FollowerOnlyReferenceModule bool `json:"followerOnlyReferenceModule"`
}

type CreatePostRequest struct {
	ProfileID       string                 `json:"profileId"`
	ContentURI      string                 `json:"contentURI"`
	CollectModule   CollectModuleParams    `json:"collectModule"`
	ReferenceModule *ReferenceModuleParams `json:"referenceModule,omitempty"`
}

type SetDispatcherRequest struct {
	ProfileID  string `json:"profileId"`
	Dispatcher string `json:"dispatcher,omitempty"`
}

type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type TypedDataDomain struct {
	Name              string `json:"name"`
	ChainID           int64  `json:"chainId"`
	Version           string `json:"version"`
	VerifyingContract string `json:"verifyingContract"`
}

// TypedData is the EIP-712 payload returned by the API. Value keeps the JSON
// decoded message; numbers arrive as float64 or decimal/hex strings.
type TypedData struct {
	PrimaryType string                      `json:"primaryType"`
	Types       map[string][]TypedDataField `json:"types"`
	Domain      TypedDataDomain             `json:"domain"`
	Value       map[string]any              `json:"value"`
}

type TypedDataResult struct {
	ID        string    `json:"id"`
	ExpiresAt string    `json:"expiresAt"`
	TypedData TypedData `json:"typedData"`
}

// PrimaryTypeName returns the explicit primary type or, when the API left it
// out, the single non-domain struct declared in Types.
func (t TypedData) PrimaryTypeName() string {
	if t.PrimaryType != "" {
		return t.PrimaryType
	}
	for name := range t.Types {
		if name != "EIP712Domain" {
			return name
		}
	}
	return ""
}

type PublishResult struct {
	MediaPath    string              `json:"media_path,omitempty"`
	MetadataPath string              `json:"metadata_path"`
	ContentURI   string              `json:"content_uri"`
	Validation   *MetadataValidation `json:"validation,omitempty"`
	TxHash       string              `json:"tx_hash"`
}
