package models

import (
	"slices"
	"time"

	id "walletgate/pkg/domain"
	dErrors "walletgate/pkg/domain-errors"
)

// DocumentKind is the fixed vocabulary of uploadable artifacts.
type DocumentKind string

const (
	DocIDFront                 DocumentKind = "id_front"
	DocIDBack                  DocumentKind = "id_back"
	DocBusinessFormation       DocumentKind = "business_formation"
	DocBusinessOwnership       DocumentKind = "business_ownership"
	DocProofOfAddress          DocumentKind = "proof_of_address"
	DocProofOfNatureOfBusiness DocumentKind = "proof_of_nature_of_business"
)

var documentKinds = []DocumentKind{
	DocIDFront, DocIDBack, DocBusinessFormation, DocBusinessOwnership,
	DocProofOfAddress, DocProofOfNatureOfBusiness,
}

func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(s)
	if !slices.Contains(documentKinds, k) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown document kind: "+s)
	}
	return k, nil
}

// Path is the field path the visibility table uses for this kind.
func (k DocumentKind) Path() string {
	return DocumentsPrefix + string(k)
}

type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// Document is one uploaded artifact. RejectionReason is set only while rejected.
type Document struct {
	ProfileID          id.ProfileID   `json:"-"`
	Kind               DocumentKind   `json:"kind"`
	ContentSHA256      string         `json:"content_sha256"`
	ProviderDocumentID string         `json:"provider_document_id"`
	Status             DocumentStatus `json:"status"`
	RejectionReason    string         `json:"rejection_reason,omitempty"`
	UploadedAt         time.Time      `json:"uploaded_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// DocumentTracker keeps per-kind review state for one profile.
//
// Invariants:
//   - an approved document is never overwritten by an upload
//   - a rejection keeps its reason; any other status clears it
//   - uploading a replacement moves the kind to pending
//   - the provider may reopen an approved document, which is a rejection
type DocumentTracker struct {
	docs map[DocumentKind]*Document
}

func NewDocumentTracker(docs []Document) *DocumentTracker {
	t := &DocumentTracker{docs: make(map[DocumentKind]*Document, len(docs))}
	for i := range docs {
		d := docs[i]
		t.docs[d.Kind] = &d
	}
	return t
}

func (t *DocumentTracker) Get(kind DocumentKind) (Document, bool) {
	d, ok := t.docs[kind]
	if !ok {
		return Document{}, false
	}
	return *d, true
}

// CanReplace refuses uploads over an approved document.
func (t *DocumentTracker) CanReplace(kind DocumentKind) error {
	if d, ok := t.docs[kind]; ok && d.Status == DocumentApproved {
		return dErrors.Validation(dErrors.FieldError{Field: kind.Path(), Message: "already approved and cannot be replaced"})
	}
	return nil
}

// RecordUpload registers a new upload as pending.
func (t *DocumentTracker) RecordUpload(profileID id.ProfileID, kind DocumentKind, sha, providerDocumentID string, now time.Time) error {
	if err := t.CanReplace(kind); err != nil {
		return err
	}
	t.docs[kind] = &Document{
		ProfileID:          profileID,
		Kind:               kind,
		ContentSHA256:      sha,
		ProviderDocumentID: providerDocumentID,
		Status:             DocumentPending,
		UploadedAt:         now,
		UpdatedAt:          now,
	}
	return nil
}

// ApplyDecision records a review outcome and reports whether anything changed.
// Decisions for kinds that were never uploaded are ignored.
func (t *DocumentTracker) ApplyDecision(kind DocumentKind, status DocumentStatus, reason string, now time.Time) bool {
	d, ok := t.docs[kind]
	if !ok {
		return false
	}
	if status != DocumentRejected {
		reason = ""
	}
	if d.Status == status && d.RejectionReason == reason {
		return false
	}
	d.Status = status
	d.RejectionReason = reason
	d.UpdatedAt = now
	return true
}

func (t *DocumentTracker) AllRequiredApproved(required []DocumentKind) bool {
	for _, k := range required {
		d, ok := t.docs[k]
		if !ok || d.Status != DocumentApproved {
			return false
		}
	}
	return true
}

func (t *DocumentTracker) AnyRejected() bool {
	for _, d := range t.docs {
		if d.Status == DocumentRejected {
			return true
		}
	}
	return false
}

// Rejected is the subset shown for resubmission.
func (t *DocumentTracker) Rejected() []Document {
	var out []Document
	for _, d := range t.All() {
		if d.Status == DocumentRejected {
			out = append(out, d)
		}
	}
	return out
}

// All returns every tracked document ordered by kind.
func (t *DocumentTracker) All() []Document {
	out := make([]Document, 0, len(t.docs))
	for _, k := range documentKinds {
		if d, ok := t.docs[k]; ok {
			out = append(out, *d)
		}
	}
	return out
}

// RequiredDocuments derives mandatory kinds from the field table.
func RequiredDocuments(table FieldTable) []DocumentKind {
	var out []DocumentKind
	for _, path := range table.Required(DocumentsPrefix) {
		if k, err := ParseDocumentKind(path[len(DocumentsPrefix):]); err == nil {
			out = append(out, k)
		}
	}
	return out
}
