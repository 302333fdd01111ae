package model

// RequestItem is one element of an outgoing generation payload.
// The set of implementations is closed: DocumentItem and TextItem.
type RequestItem interface {
	requestItem()
}

// DocumentItem places a previously uploaded document into the payload.
type DocumentItem struct {
	Ref RemoteDocumentRef
}

// TextItem places raw user text into the payload.
type TextItem struct {
	Text string
}

func (DocumentItem) requestItem() {}
func (TextItem) requestItem()     {}

// OutgoingRequest is the exact ordered payload sent to the model for one turn.
type OutgoingRequest []RequestItem

// NewDocumentRequest builds [refs..., text] keeping the order of refs.
func NewDocumentRequest(refs []RemoteDocumentRef, text string) OutgoingRequest {
	items := make(OutgoingRequest, 0, len(refs)+1)
	for _, ref := range refs {
		items = append(items, DocumentItem{Ref: ref})
	}
	return append(items, TextItem{Text: text})
}
