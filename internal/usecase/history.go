package usecase

import (
	"context"

	"docaccess/internal/domain"
)

// AddDocument prepends doc to the history, persists the history and makes
// doc the current document. A missing id is generated and a zero timestamp
// is set to now. Adding an id that already exists fails with ErrDuplicate.
func (a *App) AddDocument(ctx context.Context, doc domain.ProcessedDocument) (domain.ProcessedDocument, error) {
	if doc.Timestamp.IsZero() {
		doc.Timestamp = a.deps.Now()
	}
	if doc.ID == "" {
		doc.ID = NewID(doc.Timestamp)
	}
	doc = doc.Normalize().Clone()

	a.mu.Lock()
	if a.indexLocked(doc.ID) >= 0 {
		a.mu.Unlock()
		return domain.ProcessedDocument{}, domain.NewDomainError("App.AddDocument", domain.ErrDuplicate, doc.ID)
	}
	docs := make([]domain.ProcessedDocument, 0, len(a.documents)+1)
	docs = append(docs, doc)
	a.documents = append(docs, a.documents...)
	a.persistDocumentsLocked(ctx)
	a.selectLocked(&doc)
	a.mu.Unlock()

	a.deps.Logger.Info("document added", "id", doc.ID, "domain", string(doc.Domain), "language", doc.Language)
	a.publish(ctx, domain.EventDocumentAdded, domain.DocumentEventPayload{ID: doc.ID})
	a.publish(ctx, domain.EventDocumentSelected, domain.DocumentEventPayload{ID: doc.ID})
	return doc.Clone(), nil
}

// RemoveDocument deletes the document with id from the history. Removing an
// unknown id is a no-op apart from rewriting the stored history. If the
// removed document was current, the current document and chat are cleared.
func (a *App) RemoveDocument(ctx context.Context, id string) {
	a.mu.Lock()
	i := a.indexLocked(id)
	if i >= 0 {
		a.documents = append(a.documents[:i:i], a.documents[i+1:]...)
	}
	a.persistDocumentsLocked(ctx)
	wasCurrent := a.current != nil && a.current.ID == id
	if wasCurrent {
		a.selectLocked(nil)
	}
	a.mu.Unlock()

	if i >= 0 {
		a.publish(ctx, domain.EventDocumentRemoved, domain.DocumentEventPayload{ID: id})
	}
	if wasCurrent {
		a.publish(ctx, domain.EventDocumentSelected, domain.DocumentEventPayload{})
	}
}

// SetCurrentDocument makes doc the current document, or clears it when doc
// is nil. The document does not have to be part of the history.
func (a *App) SetCurrentDocument(ctx context.Context, doc *domain.ProcessedDocument) {
	var id string
	a.mu.Lock()
	if doc != nil {
		d := doc.Normalize().Clone()
		id = d.ID
		a.selectLocked(&d)
	} else {
		a.selectLocked(nil)
	}
	a.mu.Unlock()

	a.publish(ctx, domain.EventDocumentSelected, domain.DocumentEventPayload{ID: id})
}

// SelectDocument makes the history entry with id current.
func (a *App) SelectDocument(ctx context.Context, id string) (domain.ProcessedDocument, error) {
	doc, ok := a.Document(id)
	if !ok {
		return domain.ProcessedDocument{}, domain.NewDomainError("App.SelectDocument", domain.ErrNotFound, id)
	}
	a.SetCurrentDocument(ctx, &doc)
	return doc, nil
}

// Documents returns a copy of the history, newest first.
func (a *App) Documents() []domain.ProcessedDocument {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.ProcessedDocument, len(a.documents))
	for i, d := range a.documents {
		out[i] = d.Clone()
	}
	return out
}

// Document looks up a history entry by id.
func (a *App) Document(id string) (domain.ProcessedDocument, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i := a.indexLocked(id); i >= 0 {
		return a.documents[i].Clone(), true
	}
	return domain.ProcessedDocument{}, false
}

// CurrentDocument returns the document being viewed, if any.
func (a *App) CurrentDocument() (domain.ProcessedDocument, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return domain.ProcessedDocument{}, false
	}
	return a.current.Clone(), true
}

func (a *App) indexLocked(id string) int {
	for i := range a.documents {
		if a.documents[i].ID == id {
			return i
		}
	}
	return -1
}

// persistDocumentsLocked writes the history while a.mu is held, so writes
// land in the same order as the changes they record.
func (a *App) persistDocumentsLocked(ctx context.Context) {
	docs := a.documents
	if docs == nil {
		docs = []domain.ProcessedDocument{}
	}
	a.deps.Store.Encode(ctx, domain.StorageKeyDocuments, docs)
}

// selectLocked replaces the current document. The chat transcript belongs to
// the current document: switching to a different id starts a fresh
// transcript with the greeting, and clearing the document empties it.
func (a *App) selectLocked(doc *domain.ProcessedDocument) {
	prevID := ""
	if a.current != nil {
		prevID = a.current.ID
	}
	if doc == nil {
		a.current = nil
		a.chat = nil
		return
	}
	a.current = doc
	if doc.ID != prevID || len(a.chat) == 0 {
		a.chat = []domain.ChatMessage{a.greeting()}
	}
}
