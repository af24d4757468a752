// Package bot is the Telegram front-end over the quiz manager and the
// vocabulary generator.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/koinebot/internal/corpus"
	"github.com/example/koinebot/internal/database"
	"github.com/example/koinebot/internal/quiz"
	"github.com/example/koinebot/internal/vocab"
	"github.com/example/koinebot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot represents the Telegram bot application
type Bot struct {
	api       *tgbotapi.BotAPI
	token     string
	quiz      *quiz.Manager
	generator *vocab.Generator
	cards     *database.CardRepository
	verses    []models.Verse
	config    *BotConfig
}

// New creates a new bot instance
func New(quizManager *quiz.Manager, generator *vocab.Generator, verses []models.Verse) (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	return &Bot{
		token:     token,
		quiz:      quizManager,
		generator: generator,
		cards:     database.NewCardRepository(),
		verses:    verses,
		config:    DefaultConfig(),
	}, nil
}

// Start initializes the bot and blocks handling updates until the update
// channel is closed by Stop.
func (b *Bot) Start() error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %v", err)
	}

	b.api = botAPI
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := b.api.GetUpdatesChan(updateConfig)
	for update := range updates {
		go b.handleUpdate(update)
	}

	return nil
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	log.Println("Bot stopped")
}

// SendReminder implements the scheduler.Notifier interface. User IDs are
// Telegram IDs in decimal, which for private chats equal the chat ID.
func (b *Bot) SendReminder(userID string, dueCount int) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad user id %q: %v", userID, err)
	}

	noun := "words are"
	if dueCount == 1 {
		noun = "word is"
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"⏰ %d %s due for review. Send /quiz due to practice them.", dueCount, noun))
	_, err = b.api.Send(msg)
	if err != nil {
		log.Printf("Error sending reminder to user %s: %v", userID, err)
	}
	return err
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	message := update.Message
	if message.IsCommand() {
		switch message.Command() {
		case "start", "help":
			b.handleHelpCommand(message)
		case "vocab":
			b.handleVocabCommand(message)
		case "quiz":
			b.handleQuizCommand(message)
		case "due":
			b.handleDueCommand(message)
		case "progress":
			b.handleProgressCommand(message)
		case "end":
			b.handleEndCommand(message)
		default:
			b.reply(message.Chat.ID, "Unknown command. Use /help to see what I can do.")
		}
		return
	}

	// Plain text while a question is pending is treated as an answer.
	b.handleAnswer(message)
}

func userIDOf(message *tgbotapi.Message) string {
	return strconv.FormatInt(message.From.ID, 10)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) handleHelpCommand(message *tgbotapi.Message) {
	helpText := `Welcome to the Koine Greek vocabulary tutor! 📖

Available commands:
/vocab [book [chapter]] - Add new vocabulary cards from the corpus
/quiz - Quiz on the most frequent words overall
/quiz due - Quiz on words due for review
/quiz <book> [chapter] - Quiz scoped to a book or chapter
/due - Show how many words are due
/progress - Show your best-known words
/end - End the current quiz

During a quiz, just type your English translation to answer.`
	b.reply(message.Chat.ID, helpText)
}

// parseScope interprets command arguments as [book [chapter]]. A trailing
// number is the chapter; everything before it is the book name.
func parseScope(args []string) (book string, chapter int, err error) {
	if len(args) == 0 {
		return "", 0, nil
	}
	if n, convErr := strconv.Atoi(args[len(args)-1]); convErr == nil {
		chapter = n
		args = args[:len(args)-1]
	}
	if len(args) == 0 {
		return "", 0, fmt.Errorf("a chapter needs a book name before it")
	}
	book, ok := corpus.CanonicalBook(strings.Join(args, " "))
	if !ok {
		return "", 0, fmt.Errorf("unknown book %q", strings.Join(args, " "))
	}
	return book, chapter, nil
}

func (b *Bot) handleVocabCommand(message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())
	book, chapter, err := parseScope(args)
	if err != nil {
		b.reply(message.Chat.ID, "❌ "+err.Error())
		return
	}

	scope := corpus.Scope{Book: book, Chapter: chapter}
	words, err := b.generator.Generate(context.Background(), userIDOf(message),
		b.verses, scope, true, b.config.DefaultVocabBatch)
	if err != nil {
		log.Printf("Error generating vocabulary: %v", err)
		b.reply(message.Chat.ID, "❌ Could not generate vocabulary. Please try again.")
		return
	}
	if len(words) == 0 {
		b.reply(message.Chat.ID, "No new words found in that scope. You may already know them all!")
		return
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("📚 Added %d new words:\n\n", len(words)))
	for i, w := range words {
		text.WriteString(fmt.Sprintf("%d. %s\n", i+1, w))
	}
	text.WriteString("\nStart practicing with /quiz due")
	b.reply(message.Chat.ID, text.String())
}

func (b *Bot) handleQuizCommand(message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())

	opts := quiz.StartOptions{
		Mode:      models.ModeGlobal,
		Count:     b.config.DefaultQuizLength,
		Normalize: true,
	}
	if len(args) > 0 {
		if strings.EqualFold(args[0], "due") {
			opts.Mode = models.ModeDue
		} else {
			book, chapter, err := parseScope(args)
			if err != nil {
				b.reply(message.Chat.ID, "❌ "+err.Error())
				return
			}
			opts.Book = book
			opts.Chapter = chapter
			opts.Mode = models.ModeBook
			if chapter != 0 {
				opts.Mode = models.ModeChapter
			}
		}
	}

	userID := userIDOf(message)
	session, err := b.quiz.Start(context.Background(), userID, opts)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrEmptyScope):
			b.reply(message.Chat.ID, "Nothing to quiz in that scope. Add words with /vocab first.")
		case errors.Is(err, quiz.ErrMissingScope):
			b.reply(message.Chat.ID, "❌ "+err.Error())
		default:
			log.Printf("Error starting quiz: %v", err)
			b.reply(message.Chat.ID, "❌ Could not start the quiz. Please try again.")
		}
		return
	}

	b.reply(message.Chat.ID, fmt.Sprintf("🎯 Quiz started: %d questions. Type your translation after each word.", session.Total))
	b.askNext(message.Chat.ID, userID)
}

// askNext serves the next question or wraps the session up when the
// queue is exhausted.
func (b *Bot) askNext(chatID int64, userID string) {
	result, err := b.quiz.Next(context.Background(), userID)
	if err != nil {
		if errors.Is(err, quiz.ErrNoActiveSession) {
			b.reply(chatID, "No quiz is running. Start one with /quiz.")
			return
		}
		log.Printf("Error advancing quiz: %v", err)
		b.reply(chatID, "❌ Could not fetch the next question. Please try again.")
		return
	}

	if result.Done {
		summary, err := b.quiz.End(context.Background(), userID)
		if err != nil {
			log.Printf("Error ending quiz: %v", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("🏁 Quiz finished! You got %d of %d right.", summary.Correct, summary.Asked))
		return
	}

	text := fmt.Sprintf("❓ Translate: %s", result.Question.Token)
	if result.Degraded {
		text += "\n(gloss lookup is temporarily unavailable)"
	}
	b.reply(chatID, text)
}

func (b *Bot) handleAnswer(message *tgbotapi.Message) {
	answer := strings.TrimSpace(message.Text)
	if answer == "" {
		return
	}

	userID := userIDOf(message)
	result, err := b.quiz.Grade(context.Background(), userID, answer)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrNoActiveSession):
			b.reply(message.Chat.ID, "No quiz is running. Start one with /quiz, or see /help.")
		case errors.Is(err, quiz.ErrNoCurrentQuestion):
			b.askNext(message.Chat.ID, userID)
		default:
			log.Printf("Error grading answer: %v", err)
			b.reply(message.Chat.ID, "❌ Could not grade that answer. Please try again.")
		}
		return
	}

	var text strings.Builder
	switch result.Verdict {
	case models.VerdictCorrect:
		text.WriteString("✅ Correct!")
	case models.VerdictPartial:
		text.WriteString("🟡 Partially correct.")
	default:
		text.WriteString("❌ Incorrect.")
	}
	if result.Explanation != "" {
		text.WriteString(" " + result.Explanation)
	}
	text.WriteString(fmt.Sprintf("\nScore: %d/%d, %d to go.", result.Correct, result.Asked, result.Remaining))
	b.reply(message.Chat.ID, text.String())

	b.askNext(message.Chat.ID, userID)
}

func (b *Bot) handleDueCommand(message *tgbotapi.Message) {
	due, err := b.cards.Due(context.Background(), userIDOf(message), time.Now().UTC(), 0)
	if err != nil {
		log.Printf("Error counting due cards: %v", err)
		b.reply(message.Chat.ID, "❌ Could not check your due words. Please try again.")
		return
	}
	if len(due) == 0 {
		b.reply(message.Chat.ID, "🎉 Nothing due right now. Add more words with /vocab.")
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("⏰ %d words are due. Practice them with /quiz due.", len(due)))
}

func (b *Bot) handleProgressCommand(message *tgbotapi.Message) {
	cards, err := b.cards.List(context.Background(), userIDOf(message), b.config.ProgressLimit)
	if err != nil {
		log.Printf("Error listing cards: %v", err)
		b.reply(message.Chat.ID, "❌ Could not load your progress. Please try again.")
		return
	}
	if len(cards) == 0 {
		b.reply(message.Chat.ID, "No vocabulary yet. Add some with /vocab!")
		return
	}

	var text strings.Builder
	text.WriteString("📊 Your vocabulary, best known first:\n\n")
	for i, card := range cards {
		text.WriteString(fmt.Sprintf("%d. %s — mastery %.0f%%, reviewed %d times\n",
			i+1, card.Word, card.MasteryScore*100, card.TimesReviewed))
	}
	b.reply(message.Chat.ID, text.String())
}

func (b *Bot) handleEndCommand(message *tgbotapi.Message) {
	summary, err := b.quiz.End(context.Background(), userIDOf(message))
	if err != nil {
		log.Printf("Error ending quiz: %v", err)
		b.reply(message.Chat.ID, "❌ Could not end the quiz. Please try again.")
		return
	}
	if summary.Asked == 0 && summary.Total == 0 {
		b.reply(message.Chat.ID, "No quiz was running.")
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("🏁 Quiz ended. You got %d of %d right.", summary.Correct, summary.Asked))
}
