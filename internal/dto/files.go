package dto

import "encoding/json"

type CreateDirRequest struct {
	Path string `json:"path" example:"captures/2024-05-01"`
}

type SaveImageRequest struct {
	Path string `json:"path" example:"captures/menu.png"`
	Data string `json:"data" example:"data:image/png;base64,iVBORw0KGgo..."`
}

type SaveJSONRequest struct {
	Path    string          `json:"path" example:"captures/menu.json"`
	Content json.RawMessage `json:"content" swaggertype:"object"`
}

type PathResponse struct {
	Path string `json:"path" example:"captures/menu.png"`
}
