// Command inspect prints a topic as stored: membership events, subscriptions and
// message rows. It opens the store read-only and may run next to a live server.
package main

import (
	"chat-presence/domain"
	"chat-presence/repositories"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	topic := flag.String("topic", "", "Topic to inspect (group id or p2p:a:b)")
	user := flag.String("user", "", "Only show the rows this user deleted for themselves")
	limit := flag.Int("limit", 50, "Most recent messages to show, 0 for all")
	colours := flag.Bool("colours", true, "Colorize section headers")
	flag.Parse()

	if *topic == "" {
		log.Fatal("-topic is required")
	}
	topicID := domain.TopicID(*topic)

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	messages := repositories.NewMessageRepository(db, logger, nil)
	memberships := repositories.NewMembershipRepository(db, logger)
	subscriptions := repositories.NewSubscriptionRepository(db, logger)

	header := func(title string) {
		title = fmt.Sprintf("  ====== %s ======", title)
		if *colours {
			title = color.New(color.BgBlack, color.FgGreen).Render(title)
		}
		fmt.Println(title)
	}

	if topicID.IsGroup() {
		header("Events")
		events, err := memberships.GetEvents(topicID)
		if err != nil {
			log.Fatal(err)
		}
		table := newTable("Seq", "Kind", "Actor", "Affected", "Message", "Perms", "At")
		for _, e := range events {
			table.Append([]string{
				strconv.FormatInt(e.SequenceID, 10),
				string(e.Kind),
				string(e.ActorID),
				string(e.AffectedID),
				strconv.FormatInt(e.MessageSequenceID, 10),
				permissions(e.Permissions),
				e.At.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
	}

	header("Subscriptions")
	subs, err := subscriptions.TopicSubscriptions(topicID)
	if err != nil {
		log.Fatal(err)
	}
	table := newTable("User", "Perms", "Read", "Received", "Since")
	for _, s := range subs {
		table.Append([]string{
			string(s.UserID),
			permissions(s.Permissions),
			strconv.FormatInt(s.LastReadSeqID, 10),
			strconv.FormatInt(s.LastReceivedSeqID, 10),
			s.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()

	header("Messages")
	var deleted map[int64]struct{}
	if *user != "" {
		if deleted, err = messages.DeletedForSelf(domain.UserID(*user), topicID); err != nil {
			log.Fatal(err)
		}
	}
	rows, err := messages.GetMessages(repositories.MessageQuery{TopicID: topicID, Limit: *limit})
	if err != nil {
		log.Fatal(err)
	}
	table = newTable("Seq", "Kind", "Author", "Content", "Deleted", "At")
	for _, m := range rows {
		content := m.Content
		if m.Event != nil {
			content = fmt.Sprintf("[%s #%d]", m.Event.Kind, m.Event.SequenceID)
		}
		_, isDeleted := deleted[m.SequenceID]
		table.Append([]string{
			strconv.FormatInt(m.SequenceID, 10),
			string(m.Kind),
			string(m.AuthorID),
			truncate(content, 60),
			strconv.FormatBool(isDeleted),
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func newTable(headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func permissions(p domain.Permissions) string {
	var b strings.Builder
	for _, f := range []struct {
		perm domain.Permissions
		c    byte
	}{{domain.PermRead, 'r'}, {domain.PermWrite, 'w'}, {domain.PermManage, 'm'}} {
		if p.Has(f.perm) {
			b.WriteByte(f.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed writer leaves a vlog that must be truncated before a read-only open.
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)
			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
