package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"codetracker/internal/localstore"
	"codetracker/internal/models"
	"codetracker/internal/syncclient"
	"codetracker/internal/topics"
	"codetracker/internal/watch"
)

// State is the popup UI state.
type State int

const (
	StateLoading State = iota
	StateSignedOut
	StateSignedIn
	StateCheckingProblem
	StateNotAProblemPage
	StateProblemDetected
	StateAlreadySaved
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StateSignedOut:
		return "SignedOut"
	case StateSignedIn:
		return "SignedIn"
	case StateCheckingProblem:
		return "CheckingProblem"
	case StateNotAProblemPage:
		return "NotAProblemPage"
	case StateProblemDetected:
		return "ProblemDetected"
	case StateAlreadySaved:
		return "AlreadySaved"
	default:
		return "Unknown"
	}
}

// SaveOutcome reports how far a save got.
type SaveOutcome int

const (
	// SaveOutcomeSynced means both the local and the remote write succeeded.
	SaveOutcomeSynced SaveOutcome = iota
	// SaveOutcomeAlreadyExists means the backend already had the record;
	// still a success path.
	SaveOutcomeAlreadyExists
	// SaveOutcomeLocalOnly means the local write committed but the remote
	// write failed; shown as the degraded "saved locally" indication.
	SaveOutcomeLocalOnly
)

var (
	// ErrNotSignedIn guards operations that need an identity.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNoProblemDetected guards Save/Remove outside their states.
	ErrNoProblemDetected = errors.New("no problem detected on the current page")
	// ErrReauthRequired means the session expired mid-operation.
	ErrReauthRequired = errors.New("session expired, sign in again")
)

// RemoteClient is the backend surface the controller needs.
// *syncclient.Client satisfies it.
type RemoteClient interface {
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Session, error)
	SaveProblem(ctx context.Context, problem models.SavedProblem) (*syncclient.SaveResponse, error)
	CheckExists(ctx context.Context, url string) (bool, error)
}

// ExtractFunc is the active tab's extraction attempt. An error models the
// content script not answering; the controller retries a fixed number of
// times before concluding NotAProblemPage.
type ExtractFunc func(ctx context.Context) (models.ProblemDraft, error)

const (
	defaultMaxExtractAttempts = 3
	defaultExtractRetryDelay  = 300 * time.Millisecond
)

// Controller drives the popup state machine and scopes every save/check
// to the signed-in identity. All state lives here rather than in package
// globals so tests can run independent controllers side by side.
type Controller struct {
	store   *localstore.Store
	remote  RemoteClient
	mapper  *topics.Mapper
	extract ExtractFunc
	clock   watch.Clock
	log     *zap.Logger

	maxExtractAttempts int
	extractRetryDelay  time.Duration

	state   State
	session *models.Session
	draft   *models.ProblemDraft
	outcome SaveOutcome

	// gen invalidates responses of superseded checks: a stale network
	// reply must not overwrite state the UI already moved past.
	gen int
}

// Options tunes a controller. Zero values take defaults.
type Options struct {
	MaxExtractAttempts int
	ExtractRetryDelay  time.Duration
	Clock              watch.Clock
	Logger             *zap.Logger
}

func NewController(store *localstore.Store, remote RemoteClient, mapper *topics.Mapper, extract ExtractFunc, opts Options) *Controller {
	if opts.MaxExtractAttempts <= 0 {
		opts.MaxExtractAttempts = defaultMaxExtractAttempts
	}
	if opts.ExtractRetryDelay <= 0 {
		opts.ExtractRetryDelay = defaultExtractRetryDelay
	}
	if opts.Clock == nil {
		opts.Clock = watch.RealClock
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if mapper == nil {
		mapper = topics.NewMapper(nil)
	}
	return &Controller{
		store:              store,
		remote:             remote,
		mapper:             mapper,
		extract:            extract,
		clock:              opts.Clock,
		log:                opts.Logger,
		maxExtractAttempts: opts.MaxExtractAttempts,
		extractRetryDelay:  opts.ExtractRetryDelay,
		state:              StateLoading,
	}
}

func (c *Controller) State() State { return c.state }

// Draft returns the draft of the current check, nil outside
// ProblemDetected/AlreadySaved.
func (c *Controller) Draft() *models.ProblemDraft { return c.draft }

// LastSaveOutcome reports how the most recent save ended.
func (c *Controller) LastSaveOutcome() SaveOutcome { return c.outcome }

// CurrentUser returns the signed-in identity, nil when signed out.
func (c *Controller) CurrentUser() *models.SessionUser {
	if c.session == nil {
		return nil
	}
	user := c.session.User
	return &user
}

// AccessToken is the token provider for the sync client.
func (c *Controller) AccessToken() string {
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// Start resolves Loading: a persisted session that reconstructs via
// refresh lands in SignedIn (and immediately checks the current page);
// anything else lands in SignedOut.
func (c *Controller) Start(ctx context.Context) {
	persisted := c.store.Session()
	if persisted == nil {
		c.state = StateSignedOut
		return
	}

	restored, err := c.remote.Refresh(ctx, persisted.RefreshToken)
	if err != nil {
		c.log.Warn("persisted session did not reconstruct", zap.Error(err))
		if err := c.store.ClearSession(); err != nil {
			c.log.Warn("clear stale session", zap.Error(err))
		}
		c.state = StateSignedOut
		return
	}

	c.adoptSession(restored)
	c.CheckProblem(ctx)
}

// SignIn submits credentials. On failure the state is unchanged and the
// provider's error is returned for display; on success the controller
// reaches SignedIn and immediately checks the current page.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	sess, err := c.remote.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	c.adoptSession(sess)
	c.CheckProblem(ctx)
	return nil
}

// SignUp registers and signs in.
func (c *Controller) SignUp(ctx context.Context, email, password string) error {
	sess, err := c.remote.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	c.adoptSession(sess)
	c.CheckProblem(ctx)
	return nil
}

func (c *Controller) adoptSession(sess *models.Session) {
	c.session = sess
	if err := c.store.SetSession(sess); err != nil {
		c.log.Warn("persist session", zap.Error(err))
	}
	c.state = StateSignedIn
}

// SignOut clears the session. Local partitions, including other users',
// survive.
func (c *Controller) SignOut() error {
	c.session = nil
	c.draft = nil
	c.state = StateSignedOut
	return c.store.ClearSession()
}

// CheckProblem runs the extraction attempt with bounded retries and
// reconciles local and remote saved state. The local partition is always
// consulted before the server to avoid the round trip.
func (c *Controller) CheckProblem(ctx context.Context) {
	if c.session == nil {
		c.state = StateSignedOut
		return
	}
	c.gen++
	gen := c.gen
	c.state = StateCheckingProblem
	c.draft = nil

	draft, err := watch.Retry(ctx, c.maxExtractAttempts, c.extractRetryDelay, c.clock, func() (models.ProblemDraft, error) {
		return c.extract(ctx)
	})
	if gen != c.gen {
		return
	}
	if err != nil || draft.Platform == "" {
		c.state = StateNotAProblemPage
		return
	}
	c.draft = &draft

	userID := c.session.User.ID
	if c.store.HasProblem(userID, draft.URL) {
		c.state = StateAlreadySaved
		return
	}

	exists, err := c.remote.CheckExists(ctx, draft.URL)
	if gen != c.gen {
		// A newer navigation superseded this check; drop the response.
		return
	}
	if err != nil {
		c.log.Warn("remote existence check failed", zap.Error(err))
		c.state = StateProblemDetected
		return
	}
	if exists {
		c.state = StateAlreadySaved
		return
	}
	c.state = StateProblemDetected
}

// Save commits the current draft. The local write is the durable commit
// point: it happens first, and the transition to AlreadySaved holds even
// when the remote write fails (reported as SaveOutcomeLocalOnly). An
// expired session is retried through one refresh; if that fails too, the
// remote write is abandoned and ErrReauthRequired is returned alongside
// the local-only outcome.
func (c *Controller) Save(ctx context.Context, topicSlug, notes string) (SaveOutcome, error) {
	if c.session == nil {
		return SaveOutcomeLocalOnly, ErrNotSignedIn
	}
	if c.state != StateProblemDetected || c.draft == nil {
		return SaveOutcomeLocalOnly, ErrNoProblemDetected
	}

	if topicSlug == "" {
		topicSlug = c.mapper.Choose(c.draft.Topics)
	}
	record := models.NewSavedProblem(*c.draft, topicSlug, notes, c.session.User.ID, c.clock.Now())

	if err := c.store.SaveProblem(record.UserID, record); err != nil {
		// Without the local commit there is nothing durable to report.
		return SaveOutcomeLocalOnly, err
	}
	c.state = StateAlreadySaved

	outcome, err := c.pushRemote(ctx, record)
	c.outcome = outcome
	return outcome, err
}

func (c *Controller) pushRemote(ctx context.Context, record models.SavedProblem) (SaveOutcome, error) {
	resp, err := c.remote.SaveProblem(ctx, record)
	if errors.Is(err, syncclient.ErrUnauthorized) {
		if rerr := c.refreshSession(ctx); rerr != nil {
			return SaveOutcomeLocalOnly, ErrReauthRequired
		}
		resp, err = c.remote.SaveProblem(ctx, record)
	}
	if err != nil {
		c.log.Warn("remote save failed, record kept locally", zap.Error(err))
		return SaveOutcomeLocalOnly, nil
	}
	if resp.AlreadyExists {
		return SaveOutcomeAlreadyExists, nil
	}
	if resp.Problem != nil {
		// Adopt the server id so later patch/delete calls can address it.
		if err := c.store.SaveProblem(record.UserID, *resp.Problem); err != nil {
			c.log.Warn("update local record with server id", zap.Error(err))
		}
	}
	return SaveOutcomeSynced, nil
}

func (c *Controller) refreshSession(ctx context.Context) error {
	if c.session == nil {
		return ErrNotSignedIn
	}
	sess, err := c.remote.Refresh(ctx, c.session.RefreshToken)
	if err != nil {
		return err
	}
	c.session = sess
	if err := c.store.SetSession(sess); err != nil {
		c.log.Warn("persist refreshed session", zap.Error(err))
	}
	return nil
}

// Remove deletes the current URL from the user's local partition and
// returns to ProblemDetected. Remote deletion is a separate, explicit
// flow.
func (c *Controller) Remove() error {
	if c.session == nil {
		return ErrNotSignedIn
	}
	if c.state != StateAlreadySaved || c.draft == nil {
		return ErrNoProblemDetected
	}
	if err := c.store.RemoveProblem(c.session.User.ID, c.draft.URL); err != nil {
		return err
	}
	c.state = StateProblemDetected
	return nil
}

// LocalProblems lists the signed-in user's local partition.
func (c *Controller) LocalProblems() ([]models.SavedProblem, error) {
	if c.session == nil {
		return nil, ErrNotSignedIn
	}
	return c.store.SavedProblems(c.session.User.ID), nil
}
