package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"codetracker/internal/config"
	"codetracker/internal/extract"
	"codetracker/internal/fetch"
	"codetracker/internal/localstore"
	"codetracker/internal/logger"
	"codetracker/internal/models"
	"codetracker/internal/page"
	"codetracker/internal/session"
	"codetracker/internal/syncclient"
	"codetracker/internal/topics"
	"codetracker/internal/watch"
)

// app ties the page handle, the watchers and the session controller
// together behind one mutex. The controller expects serialized access;
// REPL commands and watcher callbacks both funnel through here.
type app struct {
	mu      sync.Mutex
	handle  *page.Handle
	watcher *watch.ContentWatcher
	monitor *watch.NavigationMonitor
	orch    *extract.Orchestrator
	fetcher *fetch.Fetcher
	client  *syncclient.Client
	ctrl    *session.Controller
	log     *zap.Logger
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	store, err := localstore.Open(cfg.Tracker.StatePath)
	if err != nil {
		log.Fatalf("open local state: %v", err)
	}

	a := &app{
		handle:  page.NewHandle(),
		fetcher: fetch.New(cfg.Tracker.Fetch),
		log:     zlog,
	}
	a.watcher = watch.NewContentWatcher(a.handle, watch.DefaultWatchTimeout, nil)
	a.orch = extract.NewOrchestrator(a.handle, zlog.Named("extract"))
	a.client = syncclient.New(cfg.Tracker.APIBaseURL, 10*time.Second, func() string {
		if a.ctrl == nil {
			return ""
		}
		return a.ctrl.AccessToken()
	})

	rules := cfg.Tracker.TopicRules
	if len(rules) == 0 {
		rules = topics.DefaultRules()
	}
	a.ctrl = session.NewController(store, a.client, topics.NewMapper(rules), a.extractCurrent, session.Options{
		Logger: zlog.Named("session"),
	})
	a.monitor = watch.NewNavigationMonitor(watch.DefaultNavigationDebounce, nil, a.onNavigate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.monitor.Run(ctx, "")

	a.mu.Lock()
	a.ctrl.Start(ctx)
	a.printStatus()
	a.mu.Unlock()

	if err := a.repl(ctx); err != nil {
		log.Fatalf("repl: %v", err)
	}
}

// extractCurrent is the controller's extraction attempt against the
// currently open page.
func (a *app) extractCurrent(context.Context) (models.ProblemDraft, error) {
	if a.handle.URL() == "" {
		return models.ProblemDraft{}, errors.New("no page open")
	}
	return a.orch.ExtractProblemData(), nil
}

// onNavigate waits for the platform's content container before running
// detection; the timeout path still runs detection against whatever
// rendered, so the fallback extractors get their chance.
func (a *app) onNavigate(url string) {
	if url == "" {
		return
	}
	platform := extract.DetectPlatform(url)
	a.watcher.Watch(extract.ContainerSelector(platform), func(found bool) {
		if !found {
			// Client-rendered sites ship shell HTML first; give the page one
			// re-fetch before falling back to whatever rendered.
			a.log.Debug("content container never appeared, re-fetching once", zap.String("url", url))
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if html, err := a.fetcher.Fetch(ctx, url); err == nil {
				if err := a.handle.Apply(html); err != nil {
					a.log.Warn("apply re-fetched page", zap.Error(err))
				}
			}
			cancel()
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.ctrl.CheckProblem(context.Background())
		a.printStatus()
	})
}

func (a *app) repl(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tracker> ",
		HistoryFile:     "/tmp/codetracker_history",
		InterruptPrompt: "^C",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("open"),
			readline.PcItem("status"),
			readline.PcItem("save"),
			readline.PcItem("remove"),
			readline.PcItem("list"),
			readline.PcItem("remote"),
			readline.PcItem("done"),
			readline.PcItem("delete"),
			readline.PcItem("signup"),
			readline.PcItem("login"),
			readline.PcItem("logout"),
			readline.PcItem("whoami"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "open":
			if len(args) != 1 {
				fmt.Println("usage: open <url>")
				continue
			}
			a.open(ctx, args[0])
		case "status":
			a.mu.Lock()
			a.printStatus()
			a.mu.Unlock()
		case "save":
			topic := ""
			notes := ""
			if len(args) > 0 {
				topic = args[0]
			}
			if len(args) > 1 {
				notes = strings.Join(args[1:], " ")
			}
			a.save(ctx, topic, notes)
		case "remove":
			a.mu.Lock()
			if err := a.ctrl.Remove(); err != nil {
				fmt.Println("remove:", err)
			} else {
				fmt.Println("removed from local collection")
			}
			a.mu.Unlock()
		case "list":
			a.listLocal()
		case "remote":
			a.listRemote(ctx, args)
		case "done":
			a.markDone(ctx, args)
		case "delete":
			a.deleteRemote(ctx, args)
		case "signup":
			a.authenticate(ctx, rl, true)
		case "login":
			a.authenticate(ctx, rl, false)
		case "logout":
			a.mu.Lock()
			if err := a.ctrl.SignOut(); err != nil {
				fmt.Println("logout:", err)
			} else {
				fmt.Println("signed out")
			}
			a.mu.Unlock()
		case "whoami":
			a.mu.Lock()
			if user := a.ctrl.CurrentUser(); user != nil {
				fmt.Printf("%s (%s)\n", user.Email, user.ID)
			} else {
				fmt.Println("not signed in")
			}
			a.mu.Unlock()
		case "help":
			printHelp()
		case "exit", "quit":
			return nil
		default:
			fmt.Printf("unknown command %q, try help\n", cmd)
		}
	}
}

func (a *app) open(ctx context.Context, url string) {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	html, err := a.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		fmt.Println("fetch:", err)
		return
	}
	if err := a.handle.Navigate(url, html); err != nil {
		fmt.Println("parse page:", err)
		return
	}
	// The monitor debounces rapid opens and fires onNavigate, which waits
	// for the content container before running detection.
	a.monitor.URLChanged(url)
}

func (a *app) save(ctx context.Context, topic, notes string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	outcome, err := a.ctrl.Save(ctx, topic, notes)
	if err != nil {
		fmt.Println("save:", err)
		if !errors.Is(err, session.ErrReauthRequired) {
			return
		}
	}
	switch outcome {
	case session.SaveOutcomeSynced:
		fmt.Println("saved and synced")
	case session.SaveOutcomeAlreadyExists:
		fmt.Println("already in your collection server-side")
	case session.SaveOutcomeLocalOnly:
		fmt.Println("saved locally, sync pending")
	}
}

func (a *app) listLocal() {
	a.mu.Lock()
	defer a.mu.Unlock()

	problems, err := a.ctrl.LocalProblems()
	if err != nil {
		fmt.Println("list:", err)
		return
	}
	if len(problems) == 0 {
		fmt.Println("no saved problems")
		return
	}
	for _, p := range problems {
		printProblem(p)
	}
}

func (a *app) listRemote(ctx context.Context, args []string) {
	limit := 0
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &limit); err != nil {
			fmt.Println("usage: remote [limit]")
			return
		}
	}
	problems, err := a.client.ListProblems(ctx, limit)
	if err != nil {
		fmt.Println("remote:", err)
		return
	}
	if len(problems) == 0 {
		fmt.Println("no problems on the server")
		return
	}
	for _, p := range problems {
		printProblem(p)
	}
}

func (a *app) markDone(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: done <id>")
		return
	}
	completed := true
	updated, err := a.client.UpdateProblem(ctx, args[0], syncclient.ProblemPatch{Completed: &completed})
	if err != nil {
		fmt.Println("done:", err)
		return
	}
	fmt.Printf("marked %q completed\n", updated.Title)
}

func (a *app) deleteRemote(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delete <id>")
		return
	}
	if err := a.client.DeleteProblem(ctx, args[0]); err != nil {
		fmt.Println("delete:", err)
		return
	}
	fmt.Println("deleted")
}

func (a *app) authenticate(ctx context.Context, rl *readline.Instance, signUp bool) {
	rl.SetPrompt("email: ")
	email, err := rl.Readline()
	rl.SetPrompt("tracker> ")
	if err != nil {
		return
	}
	password, err := rl.ReadPassword("password: ")
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if signUp {
		err = a.ctrl.SignUp(ctx, strings.TrimSpace(email), string(password))
	} else {
		err = a.ctrl.SignIn(ctx, strings.TrimSpace(email), string(password))
	}
	if err != nil {
		fmt.Println("auth:", err)
		return
	}
	user := a.ctrl.CurrentUser()
	fmt.Printf("signed in as %s\n", user.Email)
	a.printStatus()
}

// printStatus renders the state machine the way the popup would.
// Callers hold a.mu.
func (a *app) printStatus() {
	state := a.ctrl.State()
	fmt.Println("state:", state)
	switch state {
	case session.StateProblemDetected, session.StateAlreadySaved:
		if draft := a.ctrl.Draft(); draft != nil {
			fmt.Printf("  %s [%s] on %s\n", draft.Title, draft.Difficulty, draft.Platform)
			if len(draft.Topics) > 0 {
				fmt.Printf("  topics: %s\n", strings.Join(draft.Topics, ", "))
			}
		}
	}
}

func printProblem(p models.SavedProblem) {
	status := " "
	if p.Completed {
		status = "x"
	}
	fmt.Printf("[%s] %-40s %-8s %-14s %s\n", status, p.Title, p.Difficulty, p.Platform, p.URL)
	if p.ID != "" {
		fmt.Printf("    id=%s topic=%s\n", p.ID, p.Topic)
	}
}

func printHelp() {
	fmt.Print(`commands:
  open <url>            fetch a page and run problem detection
  status                show the current detection state
  save [topic] [notes]  save the detected problem (topic defaults from scraped tags)
  remove                remove the current page from the local collection
  list                  list locally saved problems
  remote [limit]        list problems stored on the server
  done <id>             mark a server-side problem completed
  delete <id>           delete a server-side problem
  signup | login        create an account / sign in
  logout | whoami       session management
  exit                  quit
`)
}
