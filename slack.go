package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// Slack truncates around 4000 characters per message; long order lists are
// split below that.
const maxSlackMessageLength = 3900

func StartSlackBot(cfg Config, db *sql.DB, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, cmd)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/orders":
		handleOrders(api, db, cfg, cmd, ReportOverdue)
	case "/pending-orders":
		handleOrders(api, db, cfg, cmd, ReportPending)
	case "/send-report":
		handleSendReport(api, db, cfg, cmd, ReportOverdue)
	case "/send-pending-report":
		handleSendReport(api, db, cfg, cmd, ReportPending)
	case "/history":
		handleHistory(api, db, cfg, cmd)
	case "/help":
		handleHelp(api, cfg, cmd)
	}
}

// handleOrders runs the pipeline and posts the order list, the statistics
// summary, the xlsx export and the statistics image to the channel.
func handleOrders(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand, kind ReportKind) {
	postMessage(api, cmd.ChannelID, fmt.Sprintf("🔄 Fetching %s...", strings.ToLower(kind.Title())))

	report, err := RunReport(cfg, kind)
	if jErr := recordRun(db, kind, "command", report, err); jErr != nil {
		log.Printf("journal error kind=%s: %v", kind, jErr)
	}
	if err != nil {
		log.Printf("orders command kind=%s error: %v", kind, err)
		postMessage(api, cmd.ChannelID, fmt.Sprintf("❌ Error fetching orders: %v", err))
		return
	}
	if report.Empty() {
		postMessage(api, cmd.ChannelID, fmt.Sprintf("❌ No %s for the period.", strings.ToLower(kind.Title())))
		return
	}

	postLongMessage(api, cmd.ChannelID, formatOrderList(report))
	postMessage(api, cmd.ChannelID, formatStatistics(report))

	now := time.Now().In(businessZone)
	xlsxPath, err := writeOrdersWorkbook(report, cfg.StoreMapping, cfg.ExportDir, now)
	if err != nil {
		log.Printf("orders command kind=%s export error: %v", kind, err)
		postMessage(api, cmd.ChannelID, fmt.Sprintf("❌ Error building export: %v", err))
		return
	}
	defer os.Remove(xlsxPath)

	pngPath, err := renderStatisticsImage(report, cfg.StoreMapping, cfg.ExportDir, now)
	if err != nil {
		log.Printf("orders command kind=%s image error: %v", kind, err)
		postMessage(api, cmd.ChannelID, fmt.Sprintf("❌ Error rendering statistics: %v", err))
		return
	}
	defer os.Remove(pngPath)

	uploadFile(api, cmd.ChannelID, xlsxPath, kind.SheetName())
	uploadFile(api, cmd.ChannelID, pngPath, kind.SheetName()+" statistics")
}

// handleSendReport runs the pipeline and delivers the report by email.
func handleSendReport(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand, kind ReportKind) {
	if !cfg.EmailConfigured() {
		postEphemeral(api, cmd, "Email delivery is not configured (email_to is empty).")
		return
	}
	postMessage(api, cmd.ChannelID, fmt.Sprintf("🔄 Sending %s report...", kind))

	report, err := RunReport(cfg, kind)
	if jErr := recordRun(db, kind, "command", report, err); jErr != nil {
		log.Printf("journal error kind=%s: %v", kind, jErr)
	}
	if err != nil {
		log.Printf("send-report kind=%s error: %v", kind, err)
		postMessage(api, cmd.ChannelID, fmt.Sprintf("❌ Error fetching orders: %v", err))
		return
	}
	if report.Empty() {
		postMessage(api, cmd.ChannelID, fmt.Sprintf("❌ No %s for the period.", strings.ToLower(kind.Title())))
		return
	}

	if err := deliverReportEmail(cfg, report); err != nil {
		log.Printf("send-report kind=%s delivery error: %v", kind, err)
		postMessage(api, cmd.ChannelID, fmt.Sprintf("❌ Error sending report: %v", err))
		return
	}
	postMessage(api, cmd.ChannelID, "✅ Report sent by email.")
}

func handleHistory(api *slack.Client, db *sql.DB, cfg Config, cmd slack.SlashCommand) {
	runs, err := RecentReportRuns(db, 10)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Error reading run history: %v", err))
		return
	}
	if len(runs) == 0 {
		postEphemeral(api, cmd, "No report runs recorded yet.")
		return
	}

	var b strings.Builder
	b.WriteString("Recent report runs:\n")
	for _, run := range runs {
		line := fmt.Sprintf("• %s %s/%s — %s", run.CreatedAt.Format("Jan 2 15:04"), run.Kind, run.Trigger, run.Status)
		if run.Status == "ok" {
			line += fmt.Sprintf(" (%d orders, %d stores)", run.Total, run.Stores)
		}
		if run.Error != "" {
			line += fmt.Sprintf(": %s", run.Error)
		}
		b.WriteString(line + "\n")
	}
	postEphemeral(api, cmd, b.String())
}

func handleHelp(api *slack.Client, cfg Config, cmd slack.SlashCommand) {
	help := "Available commands:\n" +
		"• `/orders` — List overdue orders by store\n" +
		"• `/pending-orders` — List orders pending courier handover\n" +
		"• `/send-report` — Email the overdue orders report\n" +
		"• `/send-pending-report` — Email the pending orders report\n" +
		"• `/history` — Show recent report runs\n" +
		"• `/help` — Show this message"
	postEphemeral(api, cmd, help)
}

func formatOrderList(report *OrderReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 %s by store:\n\n", report.Kind.Title()))
	for _, store := range report.Stores {
		b.WriteString(fmt.Sprintf("Store %s:\n", store))
		for _, code := range report.Orders[store] {
			b.WriteString(fmt.Sprintf("  🔸 Order: %s\n", code))
		}
	}
	return b.String()
}

func formatStatistics(report *OrderReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 %s statistics:\n\n", report.Kind.Title()))
	for _, store := range report.Stores {
		b.WriteString(fmt.Sprintf("%s: %d orders\n", store, len(report.Orders[store])))
	}
	b.WriteString(fmt.Sprintf("\n✅ Total: %d orders", report.Total()))
	return b.String()
}

func postMessage(api *slack.Client, channelID, text string) {
	if _, _, err := api.PostMessage(channelID, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("post message error channel=%s: %v", channelID, err)
	}
}

// postLongMessage splits text on line boundaries to stay under the Slack
// message size limit.
func postLongMessage(api *slack.Client, channelID, text string) {
	for _, chunk := range splitMessage(text, maxSlackMessageLength) {
		postMessage(api, channelID, chunk)
	}
}

func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if current.Len()+len(line)+1 > limit && current.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
	}
	return chunks
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	if _, err := api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("post ephemeral error channel=%s user=%s: %v", cmd.ChannelID, cmd.UserID, err)
	}
}

func uploadFile(api *slack.Client, channelID, path, title string) {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("upload stat error path=%s: %v", path, err)
		return
	}
	_, err = api.UploadFileV2(slack.UploadFileV2Parameters{
		Channel:  channelID,
		File:     path,
		FileSize: int(info.Size()),
		Filename: filepath.Base(path),
		Title:    title,
	})
	if err != nil {
		log.Printf("upload error path=%s: %v", path, err)
	}
}
