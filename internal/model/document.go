package model

// RemoteDocumentRef points at a document already uploaded to the model provider.
// URI is reusable across any number of generation calls.
type RemoteDocumentRef struct {
	DisplayName string `json:"display_name"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mime_type"`
}
