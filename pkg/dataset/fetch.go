package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-mlprep/pkg/mlerr"
)

const (
	defaultTimeout = 60 * time.Second
	defaultRetries = 3
)

// Fetcher downloads remote resources to local files.
type Fetcher struct {
	client     *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
	retries    int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(f *Fetcher)

// WithLogger sets the logger used by the fetcher.
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client. Its timeout is kept unless WithTimeout is given too, in
// which case the fetcher works on a copy and client is left untouched.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout bounds every single transfer attempt.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// WithRetries sets how many times a failed transfer is retried. Zero disables retries.
func WithRetries(retries int) FetcherOption {
	return func(f *Fetcher) {
		f.retries = retries
	}
}

// WithBackOff sets the policy spacing retries. newBackOff is called once per download.
func WithBackOff(newBackOff func() backoff.BackOff) FetcherOption {
	return func(f *Fetcher) {
		f.newBackOff = newBackOff
	}
}

// NewFetcher creates a fetcher with a 60s timeout and 3 retries on exponential back-off.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		logger:  zap.NewNop(),
		retries: defaultRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.retries < 0 {
		f.retries = 0
	}

	switch {
	case f.client == nil:
		f.client = &http.Client{Timeout: defaultTimeout}
		if f.timeout > 0 {
			f.client.Timeout = f.timeout
		}
	case f.timeout > 0:
		client := *f.client
		client.Timeout = f.timeout
		f.client = &client
	}

	return f
}

type downloadOptions struct {
	checksum  string
	overwrite bool
}

// DownloadOption configures a single download.
type DownloadOption func(o *downloadOptions)

// Overwrite downloads the resource even when the local file already exists.
func Overwrite() DownloadOption {
	return func(o *downloadOptions) {
		o.overwrite = true
	}
}

// WithChecksum requires the local file to have the given hex encoded SHA-256 digest.
func WithChecksum(sha256Hex string) DownloadOption {
	return func(o *downloadOptions) {
		o.checksum = strings.ToLower(sha256Hex)
	}
}

// DownloadFile fetches rawURL into localFilename and returns the name of the file.
//
// When localFilename is empty it is derived from the last segment of the URL path. An existing file
// is returned untouched unless Overwrite is given. A transfer failing mid-stream leaves the partial
// file in place.
func (f *Fetcher) DownloadFile(ctx context.Context, rawURL, localFilename string, opts ...DownloadOption) (string, error) {
	dOpts := &downloadOptions{}
	for _, opt := range opts {
		opt(dOpts)
	}

	if localFilename == "" {
		name, err := filenameFromURL(rawURL)
		if err != nil {
			f.logger.Error("unable to infer filename", zap.String("url", rawURL), zap.Error(err))

			return "", err
		}

		localFilename = name
		f.logger.Warn("no filename provided, inferred from url", zap.String("filename", localFilename))
	}

	if !dOpts.overwrite && fileExists(localFilename) {
		f.logger.Warn("file already exists, skipping download", zap.String("filename", localFilename))

		return localFilename, f.verify(localFilename, dOpts.checksum)
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := f.transfer(ctx, rawURL, localFilename)
		if err == nil {
			return struct{}{}, nil
		}

		var transferErr *mlerr.TransferError
		if errors.As(err, &transferErr) && !transferErr.Temporary() {
			return struct{}{}, backoff.Permanent(err)
		}

		f.logger.Debug("transfer attempt failed", zap.String("url", rawURL), zap.Error(err))

		return struct{}{}, err
	}, backoff.WithBackOff(f.newBackOff()), backoff.WithMaxTries(uint(f.retries+1)))
	if err != nil {
		f.logger.Error("unable to download file", zap.String("url", rawURL), zap.String("filename", localFilename), zap.Error(err))

		return "", errors.Wrapf(err, "unable to download %s", rawURL)
	}

	if err := f.verify(localFilename, dOpts.checksum); err != nil {
		return "", err
	}

	f.logger.Info("file saved", zap.String("filename", localFilename))

	return localFilename, nil
}

func (f *Fetcher) transfer(ctx context.Context, rawURL, filename string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return backoff.Permanent(errors.Wrapf(err, "unable to build request for %s", rawURL))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "unable to request %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &mlerr.TransferError{URL: rawURL, Status: resp.Status, StatusCode: resp.StatusCode}
	}

	file, err := os.Create(filename)
	if err != nil {
		return backoff.Permanent(errors.Wrapf(err, "unable to create file %s", filename))
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "unable to close file %s", filename)
		}
	}()

	_, err = io.Copy(file, resp.Body)
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", filename)
	}

	return nil
}

func (f *Fetcher) verify(filename, expected string) error {
	if expected == "" {
		return nil
	}

	got, err := fileSHA256(filename)
	if err != nil {
		return err
	}

	if got != expected {
		f.logger.Error("checksum mismatch", zap.String("filename", filename), zap.String("expected", expected), zap.String("got", got))

		return errors.Wrapf(mlerr.ErrChecksum, "%s: expected %s, got %s", filename, expected, got)
	}

	return nil
}

// CreateDataset makes sure the dataset directory exists and downloads the source file into it
// unless it is already there.
func (f *Fetcher) CreateDataset(ctx context.Context, cfg Config, opts ...DownloadOption) (string, error) {
	if cfg.Dir == "" || cfg.Filename == "" {
		err := mlerr.NewConfigError("dataset", "dir and filename must be set")
		f.logger.Error("invalid dataset configuration", zap.Error(err))

		return "", err
	}

	info, err := os.Stat(cfg.Dir)

	switch {
	case os.IsNotExist(err):
		if err := os.Mkdir(cfg.Dir, 0o755); err != nil {
			f.logger.Error("unable to create dataset dir", zap.String("dir", cfg.Dir), zap.Error(err))

			return "", errors.Wrapf(err, "unable to create dir %s", cfg.Dir)
		}

		f.logger.Info("created dir for raw data", zap.String("dir", cfg.Dir))
	case err != nil:
		f.logger.Error("unable to stat dataset dir", zap.String("dir", cfg.Dir), zap.Error(err))

		return "", errors.Wrapf(err, "unable to stat %s", cfg.Dir)
	case !info.IsDir():
		f.logger.Error("dataset dir is not a directory", zap.String("dir", cfg.Dir))

		return "", errors.Errorf("%s exists and is not a directory", cfg.Dir)
	}

	return f.DownloadFile(ctx, cfg.SourceURL, cfg.Path(), opts...)
}

func filenameFromURL(rawURL string) (string, error) {
	name := ""

	u, err := url.Parse(rawURL)
	if err == nil {
		name = path.Base(u.Path)
	} else {
		parts := strings.Split(rawURL, "/")
		name = parts[len(parts)-1]
	}

	if name == "" || name == "." || name == "/" {
		return "", mlerr.NewConfigError("filename", "cannot be inferred from url "+rawURL)
	}

	return name, nil
}

func fileExists(name string) bool {
	info, err := os.Stat(name)

	return err == nil && info.Mode().IsRegular()
}

func fileSHA256(name string) (string, error) {
	file, err := os.Open(name)
	if err != nil {
		return "", errors.Wrapf(err, "unable to open %s", name)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", errors.Wrapf(err, "unable to hash %s", name)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
