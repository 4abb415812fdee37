// Package api is the HTTP client for the voting backend. It owns the
// wire contract (paths, field names, the Knox-style Token auth scheme)
// and the classification of server rejections into the error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/session"
	"github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

// Client talks to the remote voting API. The session store is injected
// so every authenticated request reads the current credential instead
// of relying on ambient global state.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Store
}

func New(baseURL string, sessions *session.Store, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient, sessions: sessions}
}

// credential fetches the stored credential, failing fast (and closed)
// with ErrUnauthenticated when it is absent or the storage layer is down.
func (c *Client) credential() (string, error) {
	tok, err := c.sessions.Credential()
	if err != nil {
		return "", errors.Join(ErrUnauthenticated, err)
	}
	return tok, nil
}

// RequestOTP asks the backend to deliver an OTP over SMS. The returned
// string is the dev-mode OTP echo; it is empty against a production
// backend.
func (c *Client) RequestOTP(ctx context.Context, phoneNumber string) (string, error) {
	if phoneNumber == "" {
		return "", fmt.Errorf("%w: phone number required", ErrPreconditionFailed)
	}
	var out struct {
		Message string `json:"message"`
		OTP     string `json:"otp"`
	}
	err := c.postJSON(ctx, "request otp", "/api/request-otp/", map[string]string{"phoneNumber": phoneNumber}, "", &out)
	return out.OTP, err
}

// Login exchanges phone number and OTP for a session credential. It
// does not persist the credential; that ordering belongs to the auth flow.
func (c *Client) Login(ctx context.Context, phoneNumber, otp string) (string, error) {
	if phoneNumber == "" || otp == "" {
		return "", fmt.Errorf("%w: phone number and OTP required", ErrPreconditionFailed)
	}
	body := map[string]string{"phone_number": phoneNumber, "otp": otp}
	var out struct {
		Token string `json:"token"`
	}
	err := c.postJSON(ctx, "login", "/api/auth/phone-login/", body, "", &out)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return "", err
		}
		if errors.Is(err, ErrUnauthenticated) {
			return "", ErrInvalidCredential
		}
		if se := serverErrorOf(err); se != nil {
			return "", ErrInvalidCredential
		}
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("login: empty token in response")
	}
	return out.Token, nil
}

// FetchAuthenticatedUser confirms the stored credential against the
// backend and returns the user profile.
func (c *Client) FetchAuthenticatedUser(ctx context.Context) (models.UserProfile, error) {
	tok, err := c.credential()
	if err != nil {
		return models.UserProfile{}, err
	}
	var out models.UserProfile
	if err := c.getJSON(ctx, "fetch user", "/api/auth/user/", tok, &out); err != nil {
		return models.UserProfile{}, err
	}
	return out, nil
}

// Register creates a voter account. Field-level rejections come back
// as a *ValidationError.
func (c *Client) Register(ctx context.Context, form models.RegistrationForm) (models.UserProfile, error) {
	fields := map[string]string{
		"username":       form.Username,
		"email":          form.Email,
		"phone_number":   form.PhoneNumber,
		"voter_id":       form.VoterID,
		"adhaar_number":  form.AdhaarNumber,
		"address":        form.Address,
		"wallet_address": form.WalletAddress,
	}
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return models.UserProfile{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return models.UserProfile{}, err
	}
	var out models.UserProfile
	err := c.doMultipart(ctx, "register", "/main/register/", buf, mw.FormDataContentType(), "", &out)
	return out, err
}

// UploadDocument sends the ID document image and returns the OCR
// extraction preview plus the server-assigned verification id.
func (c *Client) UploadDocument(ctx context.Context, path string) (string, models.ExtractedFields, error) {
	tok, err := c.credential()
	if err != nil {
		return "", models.ExtractedFields{}, err
	}
	buf, contentType, err := fileForm("id_document", path)
	if err != nil {
		return "", models.ExtractedFields{}, err
	}
	var out struct {
		Status         string                 `json:"status"`
		VerificationID string                 `json:"verification_id"`
		ExtractedData  models.ExtractedFields `json:"extracted_data"`
	}
	if err := c.doMultipart(ctx, "upload document", "/api/verification/upload-id/", buf, contentType, tok, &out); err != nil {
		return "", models.ExtractedFields{}, err
	}
	return out.VerificationID, out.ExtractedData, nil
}

// UploadSelfie sends the selfie image; the backend starts face matching.
func (c *Client) UploadSelfie(ctx context.Context, path string) (string, error) {
	tok, err := c.credential()
	if err != nil {
		return "", err
	}
	buf, contentType, err := fileForm("selfie", path)
	if err != nil {
		return "", err
	}
	var out struct {
		Status             string `json:"status"`
		VerificationID     string `json:"verification_id"`
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.doMultipart(ctx, "upload selfie", "/api/verification/upload-selfie/", buf, contentType, tok, &out); err != nil {
		return "", err
	}
	return out.VerificationID, nil
}

// VerificationStatus reads the current verification record. Read-only
// and safe to repeat.
func (c *Client) VerificationStatus(ctx context.Context) (models.VerificationRecord, error) {
	tok, err := c.credential()
	if err != nil {
		return models.VerificationRecord{}, err
	}
	var out struct {
		Status       string                    `json:"status"`
		Verification models.VerificationRecord `json:"verification"`
	}
	if err := c.getJSON(ctx, "verification status", "/api/verification/status/", tok, &out); err != nil {
		return models.VerificationRecord{}, err
	}
	return out.Verification, nil
}

// ListElections returns the available elections. An empty list is a
// valid result, not an error.
func (c *Client) ListElections(ctx context.Context) ([]models.Election, error) {
	var out struct {
		Results []models.Election `json:"results"`
	}
	if err := c.getJSON(ctx, "list elections", "/api/elections/", "", &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ListCandidates returns the candidates registered for one election.
func (c *Client) ListCandidates(ctx context.Context, electionID int64) ([]models.Candidate, error) {
	var out struct {
		Results []models.Candidate `json:"results"`
	}
	q := url.Values{"election": {strconv.FormatInt(electionID, 10)}}
	if err := c.getJSON(ctx, "list candidates", "/api/candidates/?"+q.Encode(), "", &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// CastVote submits exactly one vote. The server's duplicate rejection
// is authoritative and surfaces as ErrAlreadyVoted.
func (c *Client) CastVote(ctx context.Context, electionID, candidateID int64) (models.Vote, error) {
	tok, err := c.credential()
	if err != nil {
		return models.Vote{}, err
	}
	body := map[string]int64{"election": electionID, "candidate_id": candidateID}
	var out models.Vote
	if err := c.postJSON(ctx, "cast vote", "/api/votes/", body, tok, &out); err != nil {
		if se := serverErrorOf(err); se != nil {
			return models.Vote{}, classifyVoteError(se.status, se.serverError)
		}
		return models.Vote{}, err
	}
	return out, nil
}

// VotingResults fetches the aggregate tally. A missing result set is
// ErrNotFound, a valid non-error outcome.
func (c *Client) VotingResults(ctx context.Context, electionID int64) (models.ElectionResult, error) {
	var out struct {
		Election struct {
			Name string `json:"name"`
		} `json:"election"`
		Winner struct {
			User struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"winner"`
		TotalVotes int64 `json:"total_votes"`
	}
	path := "/api/voting-results/" + strconv.FormatInt(electionID, 10) + "/"
	if err := c.getJSON(ctx, "voting results", path, "", &out); err != nil {
		return models.ElectionResult{}, err
	}
	return models.ElectionResult{
		ElectionName: out.Election.Name,
		Winner:       out.Winner.User.Username,
		TotalVotes:   out.TotalVotes,
	}, nil
}

// httpError keeps the raw status and envelope so callers can classify
// operation-specific rejections (e.g. duplicate votes).
type httpError struct {
	status int
	serverError
}

func (e *httpError) Error() string { return statusError(e.status, e.serverError).Error() }

func serverErrorOf(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body any, token string, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, token, out)
}

func (c *Client) getJSON(ctx context.Context, op, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(op, req, token, out)
}

func (c *Client) doMultipart(ctx context.Context, op, path string, body io.Reader, contentType, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(op, req, token, out)
}

func (c *Client) do(op string, req *http.Request, token string, out any) error {
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	}
	var se serverError
	if err := json.Unmarshal(raw, &se); err == nil && (se.text() != "" || se.Code != "") {
		return &httpError{status: resp.StatusCode, serverError: se}
	}
	// field-level error maps come back as {"field": ["msg", ...]}
	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err == nil && len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return &httpError{status: resp.StatusCode, serverError: se}
}

func fileForm(field, path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

// BaseURL reports the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }
