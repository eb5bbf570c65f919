package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"lc2gh/internal/boot"
	"lc2gh/internal/model"
	"lc2gh/pkg/config"
	"lc2gh/pkg/version"
)

const releasesURL = "https://api.github.com/repos/lc2gh/lc2gh/releases/latest"

func usage() {
	fmt.Fprintf(os.Stderr, `usage: lc2ghctl [-config path] <command> [flags]

commands:
  status            show credential and account state
  link [-redirect]  link a GitHub account interactively
  logout            clear stored credentials
  refresh           force a token refresh
  submit -file F    submit an artifact json file (-force to bypass dedup)
  version [-check]  print version information
`)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	if cmd == "version" {
		runVersion(args)
		return
	}

	cfg, err := boot.InitConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cli, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to init: %v", err)
	}
	defer cli.storage.Close()

	switch cmd {
	case "status":
		err = cli.status(ctx, os.Stdout)
	case "link":
		err = cli.link(ctx, args, os.Stdin, os.Stdout)
	case "logout":
		err = cli.services.LinkService.Logout(ctx)
	case "refresh":
		err = cli.refresh(ctx, os.Stdout)
	case "submit":
		err = cli.submit(ctx, args, os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

type app struct {
	cfg      *config.Config
	storage  *boot.Storage
	repos    *boot.Repositories
	services *boot.Services
}

func newApp(cfg *config.Config) (*app, error) {
	storage, err := boot.InitStorage(cfg)
	if err != nil {
		return nil, err
	}
	repos := boot.InitRepositories(cfg, storage)
	return &app{
		cfg:      cfg,
		storage:  storage,
		repos:    repos,
		services: boot.InitServices(cfg, repos),
	}, nil
}

func (a *app) status(ctx context.Context, w io.Writer) error {
	session, err := a.repos.SessionRepo.Load(ctx)
	if err != nil {
		return err
	}

	var view *model.AccountView
	if session.IsLinked() {
		if view, err = a.services.LinkService.Account(ctx); err != nil {
			fmt.Fprintf(w, "warning: %v\n", err)
		}
	}
	renderStatus(w, session, view, time.Now())
	return nil
}

func (a *app) link(ctx context.Context, args []string, in io.Reader, w io.Writer) error {
	fs := flag.NewFlagSet("link", flag.ContinueOnError)
	redirect := fs.String("redirect", a.cfg.Auth.RedirectURL, "授权完成后的回调地址")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *redirect == "" {
		*redirect = fmt.Sprintf("http://127.0.0.1:%d/", a.cfg.Server.Port)
	}

	start, err := a.services.LinkService.Start(ctx, *redirect)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Open this URL in a browser and authorize:\n\n  %s\n\n", start.URL)
	fmt.Fprint(w, "Paste the final redirect URL: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read callback url: %w", err)
	}

	view, err := a.services.LinkService.Complete(ctx, strings.TrimSpace(line), start.Nonce)
	if err != nil {
		return err
	}
	if view.Account != nil {
		fmt.Fprintf(w, "Linked as %s (%s)\n", view.Account.Login, view.RepoURL)
	} else {
		fmt.Fprintln(w, "Linked")
	}
	return nil
}

func (a *app) refresh(ctx context.Context, w io.Writer) error {
	if _, err := a.services.TokenService.Refresh(ctx); err != nil {
		return err
	}
	session, err := a.repos.SessionRepo.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Token refreshed, expires in %s\n", session.ExpiresIn(time.Now()).Round(time.Second))
	return nil
}

func (a *app) submit(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	file := fs.String("file", "", "artifact json 文件")
	force := fs.Bool("force", false, "跳过去重")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	artifact, err := readArtifact(*file)
	if err != nil {
		return err
	}
	result, err := a.services.SubmissionService.Submit(ctx, artifact, model.SubmitOptions{Force: *force})
	if result != nil {
		renderResult(w, result)
	}
	return err
}

func readArtifact(path string) (*model.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	var artifact model.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}
	if artifact.Timestamp == "" {
		artifact.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return &artifact, nil
}

func runVersion(args []string) {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	check := fs.Bool("check", false, "检查是否有新版本")
	_ = fs.Parse(args)

	info := version.GetVersionInfo()
	fmt.Printf("lc2ghctl %s (built %s, %s %s/%s)\n",
		info["version"], info["build_time"], info["go_version"], info["os"], info["arch"])

	if *check {
		outdated, latest, err := version.IsOutdated(context.Background(), releasesURL)
		switch {
		case err != nil:
			fmt.Printf("failed to check latest version: %v\n", err)
		case outdated:
			fmt.Printf("a newer version is available: %s\n", latest)
		default:
			fmt.Println("up to date")
		}
	}
}

// renderStatus 以表格输出会话状态
func renderStatus(w io.Writer, session *model.Session, view *model.AccountView, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetBorder(false)
	table.SetColumnSeparator("|")

	linked := "no"
	if session.IsLinked() {
		linked = "yes"
	}
	table.Append([]string{"Linked", linked})
	table.Append([]string{"API Base", orDash(session.APIBase)})
	table.Append([]string{"Device ID", orDash(session.DeviceID)})

	switch {
	case session.AccessToken == "":
		table.Append([]string{"Access Token", "-"})
	case session.ExpiresIn(now) <= 0:
		table.Append([]string{"Access Token", "expired"})
	default:
		table.Append([]string{"Access Token", "expires in " + session.ExpiresIn(now).Round(time.Second).String()})
	}

	if view != nil && view.Account != nil {
		table.Append([]string{"Login", view.Account.Login})
		table.Append([]string{"Repository", view.RepoURL})
	}
	table.Render()
}

// renderResult 以表格输出提交结果
func renderResult(w io.Writer, result *model.SubmissionResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetBorder(false)
	table.SetColumnSeparator("|")

	table.Append([]string{"Outcome", string(result.Outcome)})
	table.Append([]string{"Slug", result.Slug})
	table.Append([]string{"Fingerprint", result.Fingerprint.Short()})
	table.Append([]string{"Idempotency Key", orDash(result.IdempotencyKey)})
	if result.StatusCode != 0 {
		table.Append([]string{"HTTP Status", fmt.Sprintf("%d", result.StatusCode)})
	}
	if result.Message != "" {
		table.Append([]string{"Message", result.Message})
	}
	table.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
