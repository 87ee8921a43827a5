// lang.go - Localized user-facing messages (zh/en).
//
// Error bodies shown to end users are translated; selection follows the
// Accept-Language header. Log lines stay English-only.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

type textID int

const (
	textAccessKeyRequired textID = iota
	textInvalidAccessKey
	textFileUploaded
	textFileDeleted
	textFileNotFound
	textServerError
	textInvalidRequest
	textMissingKeyParam
	textAccessKeySet
)

var langResources = map[textID]map[string]string{
	textAccessKeyRequired: {"zh": "需要 Access Key", "en": "Access Key required"},
	textInvalidAccessKey:  {"zh": "無效的 Access Key", "en": "Invalid Access Key"},
	textFileUploaded:      {"zh": "檔案已上傳", "en": "File uploaded"},
	textFileDeleted:       {"zh": "檔案已刪除", "en": "File deleted"},
	textFileNotFound:      {"zh": "找不到檔案", "en": "File not found"},
	textServerError:       {"zh": "伺服器錯誤", "en": "Server error"},
	textInvalidRequest:    {"zh": "無效的請求格式", "en": "Invalid request format"},
	textMissingKeyParam:   {"zh": "缺少 key 參數", "en": "Missing key parameter"},
	textAccessKeySet:      {"zh": "Access Key 已設定", "en": "Access Key set"},
}

// requestLang picks "zh" when the Accept-Language header mentions Chinese,
// "en" otherwise.
func requestLang(r *http.Request) string {
	accept := r.Header.Get("Accept-Language")
	if strings.Contains(strings.ToLower(accept), "zh") {
		return "zh"
	}
	return "en"
}

func langText(id textID, lang string) string {
	if translations, ok := langResources[id]; ok {
		if text, ok := translations[lang]; ok {
			return text
		}
	}
	return ""
}

// writeLocalizedError writes a JSON {"error": ...} body with the translated
// message for the request's language.
func writeLocalizedError(w http.ResponseWriter, r *http.Request, status int, id textID) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": langText(id, requestLang(r)),
	})
}
