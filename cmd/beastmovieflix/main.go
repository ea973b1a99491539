package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"beastmovieflix/internal/api"
	"beastmovieflix/internal/config"
	"beastmovieflix/internal/data"
	"beastmovieflix/internal/session"
	"beastmovieflix/internal/store"
	"beastmovieflix/internal/tmdb"
	"beastmovieflix/internal/types"
)

const usage = `beastmovieflix - track movies and shows, alone or with friends

Usage: beastmovieflix <command> [arguments]

Account:
  register -u USER -e EMAIL -p PASS        create an account
  verify -e EMAIL -c CODE                  confirm the emailed code
  resend -e EMAIL                          request a fresh code
  login -u USER_OR_EMAIL -p PASS           sign in
  logout                                   sign out
  whoami                                   show the current session

Profile & social:
  profile [-id USER_ID]                    show a profile
  update-profile [-u ..] [-e ..] [-bio ..] [-picture ..] [-password ..]
  search-users -q QUERY                    find users
  follow -id USER_ID                       follow or unfollow
  followers [-id USER_ID]                  list followers
  following [-id USER_ID]                  list followed users

Diary:
  log -id TMDB_ID -title TITLE [-type movie|tv] [-rating N] [-review ..] [-lang ..] [-date YYYY-MM-DD]
  diary                                    list your watch history
  show-log -id LOG_ID                      show one entry
  edit-log -id LOG_ID [-rating N] [-review ..] [-lang ..] [-date ..]
  delete-log -id LOG_ID                    remove an entry

Lists:
  watchlist [-toggle TMDB_ID -title ..]    list or toggle the watchlist
  favorites [-toggle TMDB_ID -title ..]    list or toggle favorites
  check -id TMDB_ID                        list membership for a title

Groups:
  groups                                   list your groups
  create-group -name NAME [-desc ..] [-members a,b,c]
  group -id GROUP_ID                       show a group and its messages
  join -id GROUP_ID / leave -id GROUP_ID
  add-member -id GROUP_ID -user USER_ID
  delete-group -id GROUP_ID                remove a group from this device
  send -id GROUP_ID -m MESSAGE             post a chat message
  chat -id GROUP_ID                        live-follow a group chat

Discover (TMDB):
  trending [-type all|movie|tv] [-window day|week]
  search -q QUERY
  details -type movie|tv|person -id TMDB_ID

Admin:
  admin stats | users [-q ..] | role -id .. -role USER|ADMIN |
        delete-user -id .. | logs | delete-log -id .. |
        settings | set -key K -value V
`

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	defer st.Close()

	sess, err := session.Load(st)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load session")
	}

	client := api.NewClient(cfg.BackendURL, func() string { return sess.Token })

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	remote := false
	if cfg.UseBackend {
		remote = client.Healthy(ctx)
		if !remote {
			log.Warn().Str("backend", cfg.BackendURL).Msg("backend unreachable, running against the local store")
		}
	}

	svc := data.NewService(st, client, sess, remote)
	if err := svc.EnsureAdmin(); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin account")
	}

	app := &app{svc: svc, tmdb: tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL), out: os.Stdout}
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("command failed")
	}
}

type app struct {
	svc  *data.Service
	tmdb *tmdb.Client
	out  *os.File
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.register(ctx, args)
	case "verify":
		return a.verify(ctx, args)
	case "resend":
		return a.resend(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.svc.Logout()
	case "whoami":
		return a.whoami()
	case "profile":
		return a.profile(ctx, args)
	case "update-profile":
		return a.updateProfile(ctx, args)
	case "search-users":
		return a.searchUsers(ctx, args)
	case "follow":
		return a.follow(ctx, args)
	case "followers":
		return a.followEdge(ctx, "followers", args)
	case "following":
		return a.followEdge(ctx, "following", args)
	case "log":
		return a.logMovie(ctx, args)
	case "diary":
		return a.diary(ctx)
	case "show-log":
		return a.showLog(ctx, args)
	case "edit-log":
		return a.editLog(ctx, args)
	case "delete-log":
		return a.deleteLog(ctx, args)
	case "watchlist":
		return a.list(ctx, data.KindWatchlist, args)
	case "favorites":
		return a.list(ctx, data.KindFavorites, args)
	case "check":
		return a.check(ctx, args)
	case "groups":
		return a.groups(ctx)
	case "create-group":
		return a.createGroup(ctx, args)
	case "group":
		return a.showGroup(ctx, args)
	case "join":
		return a.membership(ctx, args, a.svc.JoinGroup)
	case "leave":
		return a.membership(ctx, args, a.svc.LeaveGroup)
	case "add-member":
		return a.addMember(ctx, args)
	case "delete-group":
		return a.deleteGroup(args)
	case "send":
		return a.send(ctx, args)
	case "chat":
		return a.chat(ctx, args)
	case "trending":
		return a.trending(args)
	case "search":
		return a.search(args)
	case "details":
		return a.details(args)
	case "admin":
		return a.admin(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email address")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.svc.Register(ctx, *username, *email, *password)
	if err != nil {
		return err
	}
	if res.RequiresCode {
		fmt.Fprintf(a.out, "Verification code sent to %s.\n", res.PendingEmail)
		if res.Code != "" {
			// No mail delivery without a backend; surface the code directly.
			fmt.Fprintf(a.out, "Your code: %s\n", res.Code)
		}
		return nil
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", res.User.Username)
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	email := fs.String("e", "", "email address")
	code := fs.String("c", "", "verification code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.svc.VerifyCode(ctx, *email, *code)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Email verified. Welcome, %s!\n", res.User.Username)
	return nil
}

func (a *app) resend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resend", flag.ContinueOnError)
	email := fs.String("e", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.svc.ResendCode(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Verification code sent to %s.\n", res.PendingEmail)
	if res.Code != "" {
		fmt.Fprintf(a.out, "Your code: %s\n", res.Code)
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	user := fs.String("u", "", "username or email")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.svc.Login(ctx, *user, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome back, %s!\n", res.User.Username)
	return nil
}

func (a *app) whoami() error {
	s := a.svc.Session()
	if !s.LoggedIn() {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	mode := "local"
	if a.svc.RemoteMode() {
		mode = "remote"
	}
	fmt.Fprintf(a.out, "%s <%s> (%s, %s mode)\n", s.Username, s.Email, s.Role, mode)
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	id := fs.String("id", "", "user id (defaults to yourself)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := a.svc.Profile(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\n", p.Username, p.Email)
	if p.Bio != "" {
		fmt.Fprintln(a.out, p.Bio)
	}
	fmt.Fprintf(a.out, "logs %d / followers %d / following %d\n", p.MovieLogsCount, p.FollowersCount, p.FollowingCount)
	return nil
}

func (a *app) updateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	username := fs.String("u", "", "new username")
	email := fs.String("e", "", "new email")
	bio := fs.String("bio", "", "new bio")
	picture := fs.String("picture", "", "new profile picture URL")
	password := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var upd data.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "u":
			upd.Username = username
		case "e":
			upd.Email = email
		case "bio":
			upd.Bio = bio
		case "picture":
			upd.ProfilePicture = picture
		case "password":
			upd.NewPassword = password
		}
	})

	if err := a.svc.UpdateProfile(ctx, upd); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated.")
	return nil
}

func (a *app) searchUsers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search-users", flag.ContinueOnError)
	query := fs.String("q", "", "username to search for")
	if err := fs.Parse(args); err != nil {
		return err
	}

	matches, err := a.svc.SearchUsers(ctx, *query)
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Fprintf(a.out, "%s\t%s\n", m.ID, m.Username)
	}
	return nil
}

func (a *app) follow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("follow", flag.ContinueOnError)
	id := fs.String("id", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	following, err := a.svc.ToggleFollow(ctx, *id)
	if err != nil {
		return err
	}
	if following {
		fmt.Fprintln(a.out, "Followed.")
	} else {
		fmt.Fprintln(a.out, "Unfollowed.")
	}
	return nil
}

func (a *app) followEdge(ctx context.Context, which string, args []string) error {
	fs := flag.NewFlagSet(which, flag.ContinueOnError)
	id := fs.String("id", "", "user id (defaults to yourself)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []types.Profile
	var err error
	if which == "followers" {
		list, err = a.svc.Followers(ctx, *id)
	} else {
		list, err = a.svc.Following(ctx, *id)
	}
	if err != nil {
		return err
	}
	for _, p := range list {
		fmt.Fprintf(a.out, "%s\t%s\n", p.ID, p.Username)
	}
	return nil
}

func (a *app) logMovie(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("log", flag.ContinueOnError)
	entry := logEntryFlags(fs)
	id := fs.String("id", "", "TMDB id")
	title := fs.String("title", "", "title")
	mediaType := fs.String("type", "movie", "movie or tv")
	poster := fs.String("poster", "", "poster path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	entry.TMDBID = *id
	entry.Title = *title
	entry.MediaType = *mediaType
	entry.PosterPath = *poster

	created, err := a.svc.LogMovie(ctx, *entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged %s (%s).\n", created.Title, created.EffectiveID())
	return nil
}

func logEntryFlags(fs *flag.FlagSet) *data.LogEntry {
	entry := &data.LogEntry{}
	fs.IntVar(&entry.Rating, "rating", 0, "rating 0-10")
	fs.StringVar(&entry.Review, "review", "", "review text")
	fs.StringVar(&entry.LanguageWatched, "lang", "", "language watched in")
	fs.StringVar(&entry.WatchedAt, "date", "", "watch date, YYYY-MM-DD")
	return entry
}

func (a *app) diary(ctx context.Context) error {
	logs, err := a.svc.Diary(ctx)
	if err != nil {
		return err
	}
	a.printLogs(logs)
	return nil
}

func (a *app) printLogs(logs []types.MovieLog) {
	for _, l := range logs {
		line := fmt.Sprintf("%s\t%s", l.EffectiveID(), l.Title)
		if l.Rating > 0 {
			line += fmt.Sprintf("\t%d/10", l.Rating)
		}
		if when := l.When(); !when.IsZero() {
			line += "\t" + when.Format("2006-01-02")
		}
		fmt.Fprintln(a.out, line)
	}
}

func (a *app) showLog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show-log", flag.ContinueOnError)
	id := fs.String("id", "", "log id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := a.svc.DiaryEntry(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", l.Title, l.MediaType)
	if l.Rating > 0 {
		fmt.Fprintf(a.out, "Rating: %d/10\n", l.Rating)
	}
	if l.Review != "" {
		fmt.Fprintln(a.out, l.Review)
	}
	return nil
}

func (a *app) editLog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit-log", flag.ContinueOnError)
	entry := logEntryFlags(fs)
	id := fs.String("id", "", "log id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	updated, err := a.svc.UpdateLog(ctx, *id, *entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s.\n", updated.Title)
	return nil
}

func (a *app) deleteLog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-log", flag.ContinueOnError)
	id := fs.String("id", "", "log id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.svc.DeleteLog(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

func (a *app) list(ctx context.Context, kind data.ListKind, args []string) error {
	fs := flag.NewFlagSet(string(kind), flag.ContinueOnError)
	toggle := fs.String("toggle", "", "TMDB id to add or remove")
	title := fs.String("title", "", "title, when adding")
	mediaType := fs.String("type", "movie", "movie or tv")
	poster := fs.String("poster", "", "poster path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *toggle != "" {
		added, err := a.svc.ToggleList(ctx, kind, types.ListItem{
			ID:     types.FlexID(*toggle),
			Type:   *mediaType,
			Title:  *title,
			Poster: *poster,
		})
		if err != nil {
			return err
		}
		if added {
			fmt.Fprintf(a.out, "Added to %s.\n", kind)
		} else {
			fmt.Fprintf(a.out, "Removed from %s.\n", kind)
		}
		return nil
	}

	items, err := a.svc.List(ctx, kind)
	if err != nil {
		return err
	}
	for _, it := range items {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", it.ID, it.Title, it.Type)
	}
	return nil
}

func (a *app) check(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	id := fs.String("id", "", "TMDB id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	status, err := a.svc.Status(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "watchlist: %t\nfavorites: %t\n", status.InWatchlist, status.InFavorites)
	return nil
}

func (a *app) groups(ctx context.Context) error {
	groups, err := a.svc.Groups(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		members := g.MemberCount
		if members == 0 {
			members = len(g.Members)
		}
		fmt.Fprintf(a.out, "%s\t%s\t%d members\n", g.ID, g.Name, members)
	}
	return nil
}

func (a *app) createGroup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-group", flag.ContinueOnError)
	name := fs.String("name", "", "group name")
	desc := fs.String("desc", "", "description")
	members := fs.String("members", "", "comma-separated member user ids")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var memberIDs []string
	for _, id := range strings.Split(*members, ",") {
		if id = strings.TrimSpace(id); id != "" {
			memberIDs = append(memberIDs, id)
		}
	}

	g, err := a.svc.CreateGroup(ctx, *name, *desc, memberIDs)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created group %s (%s).\n", g.Name, g.ID)
	return nil
}

func (a *app) showGroup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("group", flag.ContinueOnError)
	id := fs.String("id", "", "group id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g, err := a.svc.Group(ctx, *id)
	if err != nil {
		return err
	}
	a.printGroup(g)
	return nil
}

func (a *app) printGroup(g *types.Group) {
	fmt.Fprintf(a.out, "%s - %s\n", g.Name, g.Description)
	for _, m := range g.AllMessages() {
		fmt.Fprintf(a.out, "[%s] %s: %s\n", m.CreatedAt, m.SenderName, m.Content)
	}
}

func (a *app) membership(ctx context.Context, args []string, op func(context.Context, string) error) error {
	fs := flag.NewFlagSet("membership", flag.ContinueOnError)
	id := fs.String("id", "", "group id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := op(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Done.")
	return nil
}

func (a *app) addMember(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-member", flag.ContinueOnError)
	id := fs.String("id", "", "group id")
	user := fs.String("user", "", "user id to add")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.svc.AddMember(ctx, *id, *user); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Member added.")
	return nil
}

func (a *app) deleteGroup(args []string) error {
	fs := flag.NewFlagSet("delete-group", flag.ContinueOnError)
	id := fs.String("id", "", "group id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.svc.DeleteGroup(*id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Group removed from this device.")
	return nil
}

func (a *app) send(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	id := fs.String("id", "", "group id")
	message := fs.String("m", "", "message text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.svc.SendMessage(ctx, *id, *message); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sent.")
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	id := fs.String("id", "", "group id")
	interval := fs.Duration("interval", 5*time.Second, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	err := a.svc.WatchGroup(ctx, *id, *interval, func(g *types.Group) {
		a.printGroup(g)
		fmt.Fprintln(a.out, "---")
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) trending(args []string) error {
	fs := flag.NewFlagSet("trending", flag.ContinueOnError)
	mediaType := fs.String("type", "all", "all, movie or tv")
	window := fs.String("window", "week", "day or week")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.tmdb.Trending(*mediaType, *window)
	if err != nil {
		return err
	}
	a.printMedia(res.Results)
	return nil
}

func (a *app) search(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	query := fs.String("q", "", "search query")
	page := fs.Int("page", 1, "result page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.tmdb.SearchMulti(*query, *page)
	if err != nil {
		return err
	}
	a.printMedia(res.Results)
	return nil
}

func (a *app) details(args []string) error {
	fs := flag.NewFlagSet("details", flag.ContinueOnError)
	mediaType := fs.String("type", "movie", "movie, tv or person")
	id := fs.Int("id", 0, "TMDB id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("details requires -id")
	}

	switch *mediaType {
	case "movie":
		m, err := a.tmdb.GetMovieDetails(*id)
		if err != nil {
			return err
		}
		a.printTitleLine(m.DisplayTitle(), m.ReleaseDate)
		if m.Tagline != "" {
			fmt.Fprintln(a.out, m.Tagline)
		}
		if m.Runtime > 0 {
			fmt.Fprintf(a.out, "Runtime: %d min\n", m.Runtime)
		}
		a.printGenres(m.Genres)
		a.printOverview(m.Overview)
	case "tv":
		show, err := a.tmdb.GetTVDetails(*id)
		if err != nil {
			return err
		}
		a.printTitleLine(show.DisplayTitle(), show.FirstAirDate)
		if show.NumberOfSeasons > 0 {
			fmt.Fprintf(a.out, "Seasons: %d (%d episodes)\n", show.NumberOfSeasons, show.NumberOfEpisodes)
		}
		a.printGenres(show.Genres)
		a.printOverview(show.Overview)
	case "person":
		p, err := a.tmdb.GetPersonDetails(*id)
		if err != nil {
			return err
		}
		line := p.Name
		if p.KnownForDepartment != "" {
			line += " - " + p.KnownForDepartment
		}
		fmt.Fprintln(a.out, line)
		if p.Birthday != "" {
			born := "Born: " + p.Birthday
			if p.PlaceOfBirth != "" {
				born += ", " + p.PlaceOfBirth
			}
			fmt.Fprintln(a.out, born)
		}
		a.printOverview(p.Biography)
	default:
		return fmt.Errorf("unknown type %q: want movie, tv or person", *mediaType)
	}
	return nil
}

func (a *app) printTitleLine(title, date string) {
	if year := tmdb.ExtractYear(date); year != nil {
		title += fmt.Sprintf(" (%d)", *year)
	}
	fmt.Fprintln(a.out, title)
}

func (a *app) printGenres(genres []tmdb.Genre) {
	if len(genres) == 0 {
		return
	}
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	fmt.Fprintln(a.out, "Genres: "+strings.Join(names, ", "))
}

func (a *app) printOverview(text string) {
	if text != "" {
		fmt.Fprintln(a.out, "\n"+text)
	}
}

func (a *app) printMedia(items []tmdb.MediaItem) {
	for _, m := range items {
		line := fmt.Sprintf("%d\t%s", m.ID, m.DisplayTitle())
		date := m.ReleaseDate
		if date == "" {
			date = m.FirstAirDate
		}
		if year := tmdb.ExtractYear(date); year != nil {
			line += fmt.Sprintf(" (%d)", *year)
		}
		fmt.Fprintln(a.out, line)
	}
}

func (a *app) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("admin requires a subcommand: stats, users, role, delete-user, logs, delete-log, settings, set")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "stats":
		stats, err := a.svc.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "users: %d (active %d)\nlogs: %d\npending reports: %d\n",
			stats.TotalUsers, stats.ActiveUsers, stats.TotalLogs, stats.PendingReports)
		return nil

	case "users":
		fs := flag.NewFlagSet("admin users", flag.ContinueOnError)
		query := fs.String("q", "", "username or email filter")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		users, err := a.svc.AdminUsers(ctx, *query)
		if err != nil {
			return err
		}
		for _, u := range users {
			verified := " "
			if u.EmailVerified {
				verified = "*"
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s\t%s%s\n", u.ID, u.Username, u.Email, u.Role, verified)
		}
		return nil

	case "role":
		fs := flag.NewFlagSet("admin role", flag.ContinueOnError)
		id := fs.String("id", "", "user id")
		role := fs.String("role", "", "USER or ADMIN")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.svc.SetUserRole(ctx, *id, strings.ToUpper(*role)); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Role updated.")
		return nil

	case "delete-user":
		fs := flag.NewFlagSet("admin delete-user", flag.ContinueOnError)
		id := fs.String("id", "", "user id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.svc.DeleteUser(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "User deleted.")
		return nil

	case "logs":
		logs, err := a.svc.AdminLogs(ctx)
		if err != nil {
			return err
		}
		a.printLogs(logs)
		return nil

	case "delete-log":
		fs := flag.NewFlagSet("admin delete-log", flag.ContinueOnError)
		id := fs.String("id", "", "log id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.svc.AdminDeleteLog(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Log deleted.")
		return nil

	case "settings":
		settings, err := a.svc.Settings(ctx)
		if err != nil {
			return err
		}
		for k, v := range settings {
			fmt.Fprintf(a.out, "%s=%s\n", k, v)
		}
		return nil

	case "set":
		fs := flag.NewFlagSet("admin set", flag.ContinueOnError)
		key := fs.String("key", "", "setting name")
		value := fs.String("value", "", "setting value")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *key == "" {
			return errors.New("a setting key is required")
		}
		if err := a.svc.UpdateSettings(ctx, map[string]string{*key: *value}); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Setting saved.")
		return nil

	default:
		return fmt.Errorf("unknown admin subcommand %q", sub)
	}
}
