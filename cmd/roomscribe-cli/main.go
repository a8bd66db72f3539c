package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"roomscribe/internal/bootstrap"
	"roomscribe/internal/domain"
	"roomscribe/internal/roomapi"
)

const usage = `commands:
  login <email> <password>
  signup <email> <password> [nickname]
  create <title> [password]
  cancel
  join <code> [password]
  leave
  talk
  status
  quit`

var errQuit = errors.New("quit")

// session is the subset of the controller the shell drives.
type session interface {
	Login(ctx context.Context, creds domain.Credentials) error
	Signup(ctx context.Context, creds domain.Credentials) error
	OpenCreateRoom() error
	CancelCreateRoom() error
	CreateRoom(ctx context.Context, draft domain.RoomDraft) error
	JoinRoom(ctx context.Context, code, password string) error
	LeaveRoom(ctx context.Context) error
	ToggleRecording(ctx context.Context) error
	Snapshot() domain.Snapshot
	Shutdown(ctx context.Context)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := &printSink{out: os.Stdout}
	services, err := bootstrap.Build(sink, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	services.Logger.Info().Str("module", "cli").Msg("shell ready")
	fmt.Fprintln(os.Stdout, usage)
	runShell(ctx, services.Controller, os.Stdin, sink)
	services.Controller.Shutdown(context.Background())
}

// runShell reads commands until EOF, quit or ctx cancellation.
func runShell(ctx context.Context, s session, in io.Reader, out *printSink) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		out.prompt(s.Snapshot().View)
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			err := dispatch(ctx, s, out, line)
			if errors.Is(err, errQuit) {
				return
			}
			if err != nil {
				out.printf("%s\n", describeError(err))
			}
		}
	}
}

func dispatch(ctx context.Context, s session, out *printSink, line string) error {
	name, args := parseCommand(line)
	switch name {
	case "":
		return nil
	case "help":
		out.printf("%s\n", usage)
		return nil
	case "quit", "exit":
		return errQuit
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <email> <password>")
		}
		return s.Login(ctx, domain.Credentials{UserID: args[0], Password: args[1]})
	case "signup":
		if len(args) < 2 {
			return fmt.Errorf("usage: signup <email> <password> [nickname]")
		}
		return s.Signup(ctx, domain.Credentials{UserID: args[0], Password: args[1], Nickname: strings.Join(args[2:], " ")})
	case "create":
		if len(args) == 0 {
			return s.OpenCreateRoom()
		}
		if s.Snapshot().View == domain.ViewLobby {
			if err := s.OpenCreateRoom(); err != nil {
				return err
			}
		}
		draft := domain.RoomDraft{Title: args[0]}
		if len(args) > 1 {
			draft.Password = args[1]
		}
		return s.CreateRoom(ctx, draft)
	case "cancel":
		return s.CancelCreateRoom()
	case "join":
		if len(args) == 0 {
			return fmt.Errorf("usage: join <code> [password]")
		}
		password := ""
		if len(args) > 1 {
			password = args[1]
		}
		return s.JoinRoom(ctx, args[0], password)
	case "leave":
		return s.LeaveRoom(ctx)
	case "talk":
		return s.ToggleRecording(ctx)
	case "status":
		out.status(s.Snapshot())
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
}

// describeError separates input mistakes from room service answers.
func describeError(err error) string {
	if domain.IsValidationError(err) {
		return "check input: " + err.Error()
	}
	if status := roomapi.StatusOf(err); status != 0 {
		return fmt.Sprintf("error (HTTP %d): %v", status, err)
	}
	return "error: " + err.Error()
}

func parseCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// printSink writes session events as plain lines.
type printSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printSink) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printSink) prompt(view domain.View) {
	p.printf("[%s]> ", strings.ToLower(string(view)))
}

func (p *printSink) status(snap domain.Snapshot) {
	p.printf("view: %s\n", snap.View)
	if snap.SignedIn {
		p.printf("user: %s\n", snap.User.UserID)
	}
	if snap.View != domain.ViewRoom {
		return
	}
	p.printf("room: %s (%s) %d/%d\n", snap.Room.Title, snap.Room.ID, len(snap.Participants), snap.Room.MaxParticipants)
	p.printf("live feed: %t recording: %t\n", snap.FeedConnected, snap.Recording.IsRecording)
	for _, m := range snap.Messages {
		p.printf("  %s %s: %s\n", m.Timestamp.Local().Format("15:04"), m.Sender, m.Text)
	}
}

func (p *printSink) ViewChanged(view domain.View) {
	p.printf("-> %s\n", view)
}

func (p *printSink) Notice(code domain.NoticeCode, detail string) {
	p.printf("! %s: %s\n", code, detail)
}

func (p *printSink) MessageAppended(m domain.Message) {
	p.printf("%s %s: %s\n", m.Timestamp.Local().Format("15:04"), m.Sender, m.Text)
}

func (p *printSink) ParticipantsChanged(participants []domain.Participant) {
	names := make([]string, 0, len(participants))
	for _, participant := range participants {
		names = append(names, participant.DisplayName)
	}
	p.printf("participants: %s\n", strings.Join(names, ", "))
}

func (p *printSink) SpeakerChanged(name string) {
	if name == "" {
		p.printf("floor is open\n")
		return
	}
	p.printf("%s is speaking\n", name)
}

func (p *printSink) RecordingChanged(status domain.RecordingStatus) {
	if status.IsRecording {
		p.printf("recording...\n")
		return
	}
	p.printf("mic off\n")
}
