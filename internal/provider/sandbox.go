package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"

	dErrors "walletgate/pkg/domain-errors"
)

// Sandbox is a deterministic Gateway kept entirely in memory. Identifiers are
// derived from their inputs so repeated runs produce the same ids, and every
// keyed operation replays its first result for the same idempotency key.
type Sandbox struct {
	mu sync.Mutex

	latency      time.Duration
	autoApprove  bool
	autoVerify   bool
	initialFunds int64

	subjects  map[string]*sandboxSubject
	accounts  map[string]*sandboxAccount
	external  map[string]*ExternalAccount
	keyed     map[string]any
	calls     map[string]int
	failNext  map[string][]error
	transfers map[string]TransferResult
}

type sandboxSubject struct {
	status    string
	requested []string
	refill    []string
	message   string
	documents map[string]DocumentState
	session   *Session
}

type sandboxAccount struct {
	balance int64
	address string
	virtual bool
	cards   map[string]bool
}

type SandboxOption func(*Sandbox)

// WithLatency delays every call, which widens race windows in concurrency tests.
func WithLatency(d time.Duration) SandboxOption {
	return func(s *Sandbox) { s.latency = d }
}

// WithAutoApprove approves verification submissions and uploaded documents immediately.
func WithAutoApprove() SandboxOption {
	return func(s *Sandbox) { s.autoApprove = true }
}

// WithAutoVerify verifies external accounts on their first status poll.
func WithAutoVerify() SandboxOption {
	return func(s *Sandbox) { s.autoVerify = true }
}

// WithInitialFunds credits new accounts with the given balance.
func WithInitialFunds(cents int64) SandboxOption {
	return func(s *Sandbox) { s.initialFunds = cents }
}

func NewSandbox(opts ...SandboxOption) *Sandbox {
	s := &Sandbox{
		subjects:  make(map[string]*sandboxSubject),
		accounts:  make(map[string]*sandboxAccount),
		external:  make(map[string]*ExternalAccount),
		keyed:     make(map[string]any),
		calls:     make(map[string]int),
		failNext:  make(map[string][]error),
		transfers: make(map[string]TransferResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calls reports how many times an operation reached the sandbox.
func (s *Sandbox) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// FailNext queues an error returned by the next call of op.
func (s *Sandbox) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = append(s.failNext[op], err)
}

// SetStatus moves a subject to a provider verification status.
func (s *Sandbox) SetStatus(ref, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject(ref).status = status
}

// SetDocumentStatus records a review decision for one document kind.
func (s *Sandbox) SetDocumentStatus(ref, kind, status, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subject(ref)
	if status != DocumentRejected {
		reason = ""
	}
	sub.documents[kind] = DocumentState{Kind: kind, Status: status, RejectionReason: reason}
}

// RequestFields sets the provider's requested-field override set.
func (s *Sandbox) RequestFields(ref string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject(ref).requested = slices.Clone(fields)
}

// SetRefill issues a provider-side refill request.
func (s *Sandbox) SetRefill(ref, message string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subject(ref)
	sub.refill = slices.Clone(fields)
	sub.message = message
}

// Fund credits an account, standing in for an inbound deposit.
func (s *Sandbox) Fund(accountID string, cents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[accountID]; ok {
		acct.balance += cents
	}
}

// VerifyExternalAccount completes micro-deposit verification.
func (s *Sandbox) VerifyExternalAccount(externalAccountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ext, ok := s.external[externalAccountID]; ok {
		ext.Status = ExternalAccountVerified
	}
}

func (s *Sandbox) enter(ctx context.Context, op string) error {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return NewProviderError(ErrorTimeout, op, "sandbox call cancelled", ctx.Err())
		}
	}
	s.mu.Lock()
	s.calls[op]++
	var err error
	if q := s.failNext[op]; len(q) > 0 {
		err = q[0]
		s.failNext[op] = q[1:]
	}
	s.mu.Unlock()
	return err
}

func (s *Sandbox) subject(ref string) *sandboxSubject {
	sub, ok := s.subjects[ref]
	if !ok {
		sub = &sandboxSubject{status: StatusNotStarted, documents: make(map[string]DocumentState)}
		s.subjects[ref] = sub
	}
	return sub
}

func derive(prefix string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return prefix + hex.EncodeToString(h.Sum(nil))[:20]
}

func (s *Sandbox) submitted(ref string) *SubmissionResult {
	sub := s.subject(ref)
	sub.refill = nil
	sub.message = ""
	if s.autoApprove {
		sub.status = StatusApproved
	} else if sub.status == StatusNotStarted || sub.status == StatusIncomplete || sub.status == StatusRejected {
		sub.status = StatusUnderReview
	}
	return &SubmissionResult{Status: sub.status, RequestedFields: slices.Clone(sub.requested)}
}

func (s *Sandbox) CreateOrUpdateIndividual(ctx context.Context, ref string, fields map[string]string) (*SubmissionResult, error) {
	const op = "CreateOrUpdateIndividual"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	if fields["tax_identification_number"] == "000000000" {
		return nil, Rejected(op, "tax id failed verification",
			dErrors.FieldError{Field: "tax_identification_number", Message: "failed verification"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted(ref), nil
}

func (s *Sandbox) CreateOrUpdateBusiness(ctx context.Context, ref string, fields map[string]string, controlPerson map[string]string) (*SubmissionResult, error) {
	const op = "CreateOrUpdateBusiness"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	if controlPerson["tax_identification_number"] == "000000000" {
		return nil, Rejected(op, "control person tax id failed verification",
			dErrors.FieldError{Field: "control_person.tax_identification_number", Message: "failed verification"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted(ref), nil
}

func (s *Sandbox) UploadDocument(ctx context.Context, ref string, doc DocumentUpload) (*DocumentResult, error) {
	const op = "UploadDocument"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, Rejected(op, "empty document", dErrors.FieldError{Field: doc.Kind, Message: "is empty"})
	}
	sum := sha256.Sum256(doc.Content)
	status := DocumentPending
	if s.autoApprove {
		status = DocumentApproved
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject(ref).documents[doc.Kind] = DocumentState{Kind: doc.Kind, Status: status}
	return &DocumentResult{DocumentID: "doc_" + hex.EncodeToString(sum[:])[:20], Status: status}, nil
}

func (s *Sandbox) GetStatus(ctx context.Context, ref string) (*StatusResult, error) {
	if err := s.enter(ctx, "GetStatus"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subject(ref)
	docs := make([]DocumentState, 0, len(sub.documents))
	for _, d := range sub.documents {
		docs = append(docs, d)
	}
	slices.SortFunc(docs, func(a, b DocumentState) int {
		switch {
		case a.Kind < b.Kind:
			return -1
		case a.Kind > b.Kind:
			return 1
		}
		return 0
	})
	return &StatusResult{
		VerificationStatus: sub.status,
		Documents:          docs,
		RequestedFields:    slices.Clone(sub.requested),
		RefillFields:       slices.Clone(sub.refill),
		RefillMessage:      sub.message,
	}, nil
}

func (s *Sandbox) CreateControlPersonSession(ctx context.Context, ref string) (*Session, error) {
	if err := s.enter(ctx, "CreateControlPersonSession"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subject(ref)
	if sub.session == nil {
		sid := derive("sess_", ref)
		sub.session = &Session{SessionID: sid, URL: "https://verify.sandbox.walletgate.dev/session/" + sid}
	}
	out := *sub.session
	return &out, nil
}

func (s *Sandbox) createAccount(ctx context.Context, op, ref string, virtual bool) (*Account, error) {
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	accountID := derive("acct_", ref)
	acct, ok := s.accounts[accountID]
	if !ok {
		acct = &sandboxAccount{
			balance: s.initialFunds,
			address: "0x" + derive("", "address", ref)[:20] + derive("", "address2", ref)[:20],
			virtual: virtual,
			cards:   make(map[string]bool),
		}
		s.accounts[accountID] = acct
	}
	return &Account{AccountID: accountID, Address: acct.address, Rails: []string{"ach", "wire", "crypto"}}, nil
}

func (s *Sandbox) CreateWalletAccount(ctx context.Context, ref string) (*Account, error) {
	return s.createAccount(ctx, "CreateWalletAccount", ref, false)
}

func (s *Sandbox) CreateVirtualAccount(ctx context.Context, ref string) (*Account, error) {
	return s.createAccount(ctx, "CreateVirtualAccount", ref, true)
}

func (s *Sandbox) account(op, accountID string) (*sandboxAccount, error) {
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, NewProviderError(ErrorNotFound, op, "account not found", nil)
	}
	return acct, nil
}

func (s *Sandbox) GetBalance(ctx context.Context, accountID string) (int64, error) {
	const op = "GetBalance"
	if err := s.enter(ctx, op); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.account(op, accountID)
	if err != nil {
		return 0, err
	}
	return acct.balance, nil
}

func (s *Sandbox) GetDepositInstructions(ctx context.Context, accountID string) ([]Rail, error) {
	const op = "GetDepositInstructions"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.account(op, accountID)
	if err != nil {
		return nil, err
	}
	number := derive("", "acctno", accountID)[:10]
	return []Rail{
		{Name: "ach", Currency: "usd", Instructions: map[string]string{
			"bank_name": "Sandbox Bank", "routing_number": "021000021", "account_number": number,
		}},
		{Name: "wire", Currency: "usd", Instructions: map[string]string{
			"bank_name": "Sandbox Bank", "routing_number": "026009593", "account_number": number,
		}},
		{Name: "crypto", Currency: "usdc", Instructions: map[string]string{
			"chain": "ethereum", "address": acct.address,
		}},
	}, nil
}

func (s *Sandbox) CreateExternalAccount(ctx context.Context, accountID string, details BankDetails, key string) (*ExternalAccount, error) {
	const op = "CreateExternalAccount"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.account(op, accountID); err != nil {
		return nil, err
	}
	if prev, ok := s.keyed[op+key].(*ExternalAccount); ok {
		out := *s.external[prev.ExternalAccountID]
		return &out, nil
	}
	ext := &ExternalAccount{ExternalAccountID: derive("ext_", accountID, key), Status: ExternalAccountPending}
	s.external[ext.ExternalAccountID] = ext
	s.keyed[op+key] = ext
	out := *ext
	return &out, nil
}

func (s *Sandbox) GetExternalAccount(ctx context.Context, accountID, externalAccountID string) (*ExternalAccount, error) {
	const op = "GetExternalAccount"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ext, ok := s.external[externalAccountID]
	if !ok {
		return nil, NewProviderError(ErrorNotFound, op, "external account not found", nil)
	}
	if s.autoVerify {
		ext.Status = ExternalAccountVerified
	}
	out := *ext
	return &out, nil
}

func (s *Sandbox) CreateLiquidationAddress(ctx context.Context, accountID string, req LiquidationRequest, key string) (*LiquidationAddress, error) {
	const op = "CreateLiquidationAddress"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.account(op, accountID); err != nil {
		return nil, err
	}
	if prev, ok := s.keyed[op+key].(*LiquidationAddress); ok {
		out := *prev
		return &out, nil
	}
	la := &LiquidationAddress{
		LiquidationAddressID: derive("liq_", accountID, req.Chain, req.Currency, key),
		Address:              "0x" + derive("", "liq", accountID, req.Chain, req.Currency)[:20] + derive("", "liq2", key)[:20],
	}
	s.keyed[op+key] = la
	out := *la
	return &out, nil
}

func (s *Sandbox) CreateCardAccount(ctx context.Context, accountID string, key string) (*CardAccount, error) {
	const op = "CreateCardAccount"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.account(op, accountID)
	if err != nil {
		return nil, err
	}
	if prev, ok := s.keyed[op+key].(*CardAccount); ok {
		out := *prev
		return &out, nil
	}
	cardID := derive("card_", accountID, key)
	digits := fmt.Sprintf("%04d", int(cardID[5])*37%10000)
	card := &CardAccount{CardAccountID: cardID, MaskedNumber: "**** **** **** " + digits, Expiry: "12/30"}
	acct.cards[cardID] = false
	s.keyed[op+key] = card
	out := *card
	return &out, nil
}

func (s *Sandbox) SetCardFrozen(ctx context.Context, accountID, cardID string, frozen bool) error {
	const op = "SetCardFrozen"
	if err := s.enter(ctx, op); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, err := s.account(op, accountID)
	if err != nil {
		return err
	}
	if _, ok := acct.cards[cardID]; !ok {
		return NewProviderError(ErrorNotFound, op, "card not found", nil)
	}
	acct.cards[cardID] = frozen
	return nil
}

// InitiateTransfer debits the source at initiation. Wallet destinations are
// credited immediately; crypto and bank payouts stay pending.
func (s *Sandbox) InitiateTransfer(ctx context.Context, accountID string, amountCents int64, dest Destination, key string) (*TransferResult, error) {
	const op = "InitiateTransfer"
	if err := s.enter(ctx, op); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.transfers[key]; ok {
		return &prev, nil
	}
	src, err := s.account(op, accountID)
	if err != nil {
		return nil, err
	}
	if amountCents <= 0 {
		return nil, Rejected(op, "amount must be positive", dErrors.FieldError{Field: "amount", Message: "must be positive"})
	}
	if src.balance < amountCents {
		return nil, NewProviderError(ErrorInsufficientFunds, op, "insufficient funds", nil)
	}

	status := TransferPending
	switch dest.Kind {
	case DestinationWallet:
		dst, err := s.account(op, dest.AccountID)
		if err != nil {
			return nil, err
		}
		dst.balance += amountCents
		status = TransferCompleted
	case DestinationExternalAccount:
		ext, ok := s.external[dest.ExternalAccountID]
		if !ok {
			return nil, NewProviderError(ErrorNotFound, op, "external account not found", nil)
		}
		if ext.Status != ExternalAccountVerified {
			return nil, Rejected(op, "external account is not verified")
		}
	case DestinationCrypto:
		if dest.Address == "" {
			return nil, Rejected(op, "destination address required", dErrors.FieldError{Field: "address", Message: "is required"})
		}
	default:
		return nil, Rejected(op, "unknown destination kind")
	}
	src.balance -= amountCents

	res := TransferResult{TransferID: derive("tr_", accountID, key), Status: status}
	s.transfers[key] = res
	return &res, nil
}
