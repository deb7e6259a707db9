// Package cli hosts the client's interactive shell delivery. The shell is
// the routing collaborator: it reads the session status and the capture
// state and only offers the commands those allow.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"voiceid/config"
	"voiceid/internal/delivery"
	"voiceid/internal/domain/entity"
	"voiceid/internal/domain/service"
	"voiceid/internal/usecase"
	"voiceid/internal/usecase/impl"
	"voiceid/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type ShellParams struct {
	fx.In
	fx.Lifecycle

	Config   *config.Config
	Logger   *slog.Logger
	Capture  usecase.CaptureUsecase
	Sessions usecase.SessionUsecase
	API      service.AuthAPI
	Prober   service.DurationProber
}

// Shell is an interactive line-oriented front end over the capture engine,
// the session manager and the enrollment flows.
type Shell struct {
	cfg      *config.Config
	logger   *slog.Logger
	capture  usecase.CaptureUsecase
	sessions usecase.SessionUsecase
	api      service.AuthAPI
	prober   service.DurationProber

	in  io.Reader
	out io.Writer

	// flow is the orchestrator for the current authentication phase; nil
	// outside the enrollment and verification phases.
	flow     usecase.EnrollmentUsecase
	flowMode usecase.FlowMode
}

// NewShell is the constructor for Shell.
func NewShell(params ShellParams) (delivery.Delivery, error) {
	shell := &Shell{
		cfg:      params.Config,
		logger:   params.Logger,
		capture:  params.Capture,
		sessions: params.Sessions,
		api:      params.API,
		prober:   params.Prober,
		in:       os.Stdin,
		out:      os.Stdout,
	}

	params.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			shell.teardown()

			return nil
		},
	})

	return shell, nil
}

// Serve restores the persisted session and runs the command loop until the
// input closes or the context is cancelled.
func (s *Shell) Serve(ctx context.Context) error {
	session := s.sessions.Restore(ctx)
	s.syncFlow()
	s.printf("voiceid, session: %s", session.Status())
	if phrase := session.ChallengePhrase; phrase != "" {
		s.printf("challenge phrase: %q", phrase)
	}
	s.printf("type 'help' for the commands available right now")

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "exit" || fields[0] == "quit" {
			break
		}

		if err := s.dispatch(ctx, fields[0], fields[1:]); err != nil {
			s.printf("error: %v", err)
		}
		s.syncFlow()
	}

	s.teardown()

	return errors.WithStack(scanner.Err())
}

func (s *Shell) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "help":
		s.printHelp()
		return nil
	case "status":
		return s.cmdStatus()
	case "register":
		return s.cmdRegister(ctx, args)
	case "login":
		return s.cmdLogin(ctx, args)
	case "logout":
		return s.cmdLogout()
	case "whoami":
		return s.cmdWhoami()
	case "phrase":
		return s.cmdPhrase()
	case "record":
		return s.capture.Start(ctx)
	case "stop":
		return s.cmdStop()
	case "play":
		return s.capture.Play(ctx)
	case "pause":
		return s.capture.Pause()
	case "discard":
		return s.capture.Discard()
	case "collect":
		return s.cmdCollect()
	case "list":
		return s.cmdList()
	case "remove":
		return s.cmdRemove(args)
	case "import":
		return s.cmdImport(args)
	case "submit":
		return s.cmdSubmit(ctx)
	default:
		return errors.Errorf("unknown command %q, try 'help'", command)
	}
}

func (s *Shell) cmdStatus() error {
	s.printf("session: %s", s.sessions.Status())
	s.printf("capture: %s (elapsed %s, playback %s)",
		s.capture.State(),
		util.FormatDuration(time.Duration(s.capture.ElapsedSeconds())*time.Second),
		util.FormatDuration(time.Duration(s.capture.PlaybackSeconds())*time.Second))
	if s.flow != nil {
		s.printf("%s batch: %d of %d recordings, ready=%t",
			s.flowMode, len(s.flow.Recordings()), s.flow.Minimum(), s.flow.IsReady())
	}

	return nil
}

func (s *Shell) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return errors.New("usage: register <email> <password> <name> <surname>")
	}

	cred, err := s.api.Register(ctx, service.RegisterInput{
		Email:    args[0],
		Password: args[1],
		Name:     args[2],
		Surname:  args[3],
	})
	if err != nil {
		return err
	}

	session, err := s.sessions.Adopt(ctx, cred.Token, cred.Phrase)
	if err != nil {
		return err
	}
	s.printf("registered, session: %s", session.Status())
	s.printf("record yourself reading: %q", session.ChallengePhrase)

	return nil
}

func (s *Shell) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <password>")
	}

	cred, err := s.api.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	session, err := s.sessions.Adopt(ctx, cred.Token, cred.Phrase)
	if err != nil {
		return err
	}
	s.printf("logged in, session: %s", session.Status())
	if session.Status() == entity.StatusPendingSecondFactor {
		s.printf("record yourself reading: %q", session.ChallengePhrase)
	}

	return nil
}

func (s *Shell) cmdLogout() error {
	if err := s.sessions.Logout(); err != nil {
		return err
	}
	s.printf("logged out")

	return nil
}

func (s *Shell) cmdWhoami() error {
	session := s.sessions.Current()
	if session.Profile == nil {
		s.printf("session: %s, no profile loaded", session.Status())

		return nil
	}

	profile := session.Profile
	s.printf("%s %s <%s> (%s)", profile.Name, profile.Surname, profile.Email, profile.ID)

	return nil
}

func (s *Shell) cmdPhrase() error {
	phrase := s.sessions.Current().ChallengePhrase
	if phrase == "" {
		s.printf("no challenge phrase for this session")

		return nil
	}
	s.printf("challenge phrase: %q", phrase)

	return nil
}

func (s *Shell) cmdStop() error {
	recording, err := s.capture.Stop()
	if err != nil {
		return err
	}
	if recording == nil {
		return nil
	}
	s.printf("recorded %.1fs: 'play' to review, 'collect' to queue, 'discard' to drop",
		recording.DurationSeconds())

	return nil
}

func (s *Shell) cmdCollect() error {
	if s.flow == nil {
		return errors.New("no enrollment or verification flow is active")
	}

	recording, err := s.flow.Collect()
	if err != nil {
		return err
	}
	s.printf("queued %s (%.1fs)", recording.Filename, recording.DurationSeconds())

	return s.cmdList()
}

func (s *Shell) cmdList() error {
	if s.flow == nil {
		return errors.New("no enrollment or verification flow is active")
	}

	recordings := s.flow.Recordings()
	if len(recordings) == 0 {
		s.printf("batch is empty (minimum %d)", s.flow.Minimum())

		return nil
	}
	for i, recording := range recordings {
		s.printf("%d. %s  %.1fs  %s  %s  %s",
			i+1, recording.Filename, recording.DurationSeconds(),
			util.FormatBytes(int64(recording.SizeBytes)), recording.MIMEType, recording.ID)
	}
	s.printf("ready to submit: %t", s.flow.IsReady())

	return nil
}

func (s *Shell) cmdRemove(args []string) error {
	if s.flow == nil {
		return errors.New("no enrollment or verification flow is active")
	}
	if len(args) != 1 {
		return errors.New("usage: remove <recording-id>")
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return errors.Wrap(err, "invalid recording ID")
	}

	return s.flow.Remove(id)
}

func (s *Shell) cmdImport(args []string) error {
	if s.flow == nil {
		return errors.New("no enrollment or verification flow is active")
	}
	if len(args) != 1 {
		return errors.New("usage: import <path-to-wav>")
	}

	recording, err := s.flow.ImportFile(args[0])
	if err != nil {
		return err
	}
	s.printf("imported %s (%.1fs)", recording.Filename, recording.DurationSeconds())

	return nil
}

func (s *Shell) cmdSubmit(ctx context.Context) error {
	if s.flow == nil {
		return errors.New("no enrollment or verification flow is active")
	}

	session, err := s.flow.Submit(ctx)
	if err != nil {
		return err
	}
	s.printf("accepted, session: %s", session.Status())

	return nil
}

// syncFlow keeps the active orchestrator aligned with the session phase.
func (s *Shell) syncFlow() {
	var mode usecase.FlowMode
	switch s.sessions.Status() {
	case entity.StatusOnboardingRequired:
		mode = usecase.ModeEnrollment
	case entity.StatusPendingSecondFactor:
		mode = usecase.ModeVerification
	default:
		if s.flow != nil {
			s.flow.Teardown()
			s.flow = nil
		}

		return
	}

	if s.flow != nil && s.flowMode == mode {
		return
	}
	if s.flow != nil {
		s.flow.Teardown()
	}

	s.flowMode = mode
	s.flow = impl.NewEnrollmentOrchestrator(
		s.capture,
		s.sessions,
		s.api,
		s.prober,
		mode,
		s.cfg.Capture.MinEnrollmentRecordings,
		s.logger,
	)
}

func (s *Shell) teardown() {
	if s.flow != nil {
		s.flow.Teardown()
		s.flow = nil
	}
	s.capture.Teardown()
}

func (s *Shell) printHelp() {
	s.printf("always:          help, status, exit")
	switch s.sessions.Status() {
	case entity.StatusUnauthenticated:
		s.printf("unauthenticated: register <email> <password> <name> <surname>")
		s.printf("                 login <email> <password>")
	case entity.StatusOnboardingRequired:
		s.printf("enrollment:      phrase, record, stop, play, pause, discard")
		s.printf("                 collect, list, remove <id>, import <path>, submit, logout")
	case entity.StatusPendingSecondFactor:
		s.printf("verification:    phrase, record, stop, play, pause, discard")
		s.printf("                 collect, submit, logout")
	case entity.StatusAuthenticated:
		s.printf("authenticated:   whoami, logout")
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}
