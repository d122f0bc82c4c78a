package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sneezeparty/soupy/chat"
)

// The guild mission tracking commands keep their original Spanish
// surface.
const prefixHistoryLimit = 1000

func (b *Bot) handlePrefixCommand(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	name, argument := splitPrefixCommand(m.Content)
	if name == "" {
		return
	}
	if b.metricsReporter != nil {
		b.metricsReporter.IncrementCommand(name)
	}
	b.log.Debugf("prefix command '!%s' invoked by %s", name, m.Author.Username)

	switch name {
	case "formato":
		b.send(s, m.ChannelID,
			"**Formato de misión:**\n"+
				"```\n"+
				"Nick: Nombre del jugador\n"+
				"Mision: \"nombre exacto de la misión\"\n"+
				"Observacion: \"detalles devueltos de la misión\"\n"+
				"```")
	case "peticiones":
		b.send(s, m.ChannelID, strings.Join([]string{
			"`!estado Nick de la unidad` - Analiza cuántas misiones hizo cada nick",
			"`!catalogo` - Muestra el catálogo de misiones desde el mensaje fijado",
			"`!misiones_de Nick` - Cuenta las misiones completadas de un nick",
			"`!faltantes_de Nick` - Muestra las misiones del catálogo que faltan",
			"`!resumen Nick de la unidad` - Genera un resumen de las observaciones de un nick",
			"`!guild palabra` - Genera un resumen de los mensajes relacionados a una palabra clave",
			"`!formato` - Muestra el formato correcto para registrar una misión",
		}, "\n"))
	case "catalogo":
		b.handleCatalogo(s, m)
	case "estado":
		b.handleEstado(s, m, argument)
	case "misiones_de":
		b.handleMisionesDe(s, m, argument)
	case "faltantes_de":
		b.handleFaltantesDe(s, m, argument)
	case "resumen":
		b.handleResumen(ctx, s, m, argument)
	case "guild":
		b.handleGuildResumen(ctx, s, m, argument)
	}
}

func splitPrefixCommand(content string) (string, string) {
	if !strings.HasPrefix(content, "!") {
		return "", ""
	}
	name, argument, _ := strings.Cut(strings.TrimPrefix(content, "!"), " ")
	return strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(argument)
}

// pinnedCatalog finds the mission catalog in the channel's pinned
// messages.
func (b *Bot) pinnedCatalog(s *discordgo.Session, channelId string) (string, []string) {
	pinned, err := s.ChannelMessagesPinned(channelId)
	if err != nil {
		b.log.Errorf("failed to fetch pinned messages: %s", err)
		return "", nil
	}
	for _, msg := range pinned {
		if missions := ParseCatalog(msg.Content); missions != nil {
			return msg.Content, missions
		}
	}
	return "", nil
}

// channelContents pages backwards through the channel history and
// returns the raw message contents, newest first.
func (b *Bot) channelContents(s *discordgo.Session, channelId string, skipBots bool) []string {
	var contents []string
	beforeId := ""
	for len(contents) < prefixHistoryLimit {
		batch, err := s.ChannelMessages(channelId, 100, beforeId, "", "")
		if err != nil {
			b.log.Errorf("failed to fetch channel history: %s", err)
			break
		}
		if len(batch) == 0 {
			break
		}
		for _, msg := range batch {
			if skipBots && msg.Author != nil && msg.Author.Bot {
				continue
			}
			contents = append(contents, msg.Content)
		}
		beforeId = batch[len(batch)-1].ID
	}
	return contents
}

func (b *Bot) handleCatalogo(s *discordgo.Session, m *discordgo.MessageCreate) {
	content, missions := b.pinnedCatalog(s, m.ChannelID)
	if len(missions) == 0 {
		b.send(s, m.ChannelID, "❌ No se encontró ningún mensaje fijado con el catálogo de misiones.")
		return
	}
	b.send(s, m.ChannelID, "📘 Catálogo de misiones:\n"+content)
}

func (b *Bot) handleEstado(s *discordgo.Session, m *discordgo.MessageCreate, nick string) {
	if nick == "" {
		b.send(s, m.ChannelID, "❌ Indicá un nick. Ejemplo: `!estado Sellae`")
		return
	}
	_, catalog := b.pinnedCatalog(s, m.ChannelID)
	if len(catalog) == 0 {
		b.send(s, m.ChannelID, "❌ No se encontró catálogo de misiones.")
		return
	}
	messages := b.channelContents(s, m.ChannelID, false)
	completed := CompletedMissions(messages, nick)
	pending := PendingMissions(catalog, completed)

	var reply strings.Builder
	fmt.Fprintf(&reply, "📄 Estado de misiones para **%s**:\n", nick)
	fmt.Fprintf(&reply, "✅ Completadas (%d):\n", len(completed))
	for mission := range completed {
		fmt.Fprintf(&reply, "- %s\n", mission)
	}
	fmt.Fprintf(&reply, "\n⏳ Pendientes (%d):\n", len(pending))
	for _, mission := range pending {
		fmt.Fprintf(&reply, "- %s\n", mission)
	}
	b.send(s, m.ChannelID, reply.String())
}

func (b *Bot) handleMisionesDe(s *discordgo.Session, m *discordgo.MessageCreate, nick string) {
	if nick == "" {
		b.send(s, m.ChannelID, "❌ Indicá un nick. Ejemplo: `!misiones_de Sellae`")
		return
	}
	b.send(s, m.ChannelID, fmt.Sprintf("🔍 Buscando misiones del nick: %s...", nick))
	messages := b.channelContents(s, m.ChannelID, false)
	count := CompletedCount(messages, nick)
	b.send(s, m.ChannelID, fmt.Sprintf("✅ El nick **%s** tiene **%d** misiones completadas.", nick, count))
}

func (b *Bot) handleFaltantesDe(s *discordgo.Session, m *discordgo.MessageCreate, nick string) {
	if nick == "" {
		b.send(s, m.ChannelID, "❌ Indicá un nick. Ejemplo: `!faltantes_de Sellae`")
		return
	}
	b.send(s, m.ChannelID, fmt.Sprintf("🔍 Comparando misiones hechas por %s con el catálogo...", nick))
	_, catalog := b.pinnedCatalog(s, m.ChannelID)
	if len(catalog) == 0 {
		b.send(s, m.ChannelID, "❌ No se encontró catálogo de misiones.")
		return
	}
	messages := b.channelContents(s, m.ChannelID, false)
	completed := CatalogMissionsCompleted(messages, nick, catalog)
	pending := PendingMissions(catalog, completed)

	if len(pending) == 0 {
		b.send(s, m.ChannelID, fmt.Sprintf("🎉 ¡%s ha completado todas las misiones del catálogo!", nick))
		return
	}
	var reply strings.Builder
	fmt.Fprintf(&reply, "📋 Misiones que **%s** aún no completó:\n", nick)
	for _, mission := range pending {
		fmt.Fprintf(&reply, "- %s\n", mission)
	}
	b.send(s, m.ChannelID, reply.String())
}

func (b *Bot) handleResumen(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, nick string) {
	if nick == "" {
		b.send(s, m.ChannelID, "❌ Indicá un nick. Ejemplo: `!resumen Sellae`")
		return
	}
	b.send(s, m.ChannelID, fmt.Sprintf("🔍 Analizando observaciones del nick: %s...", strings.ToLower(nick)))
	messages := b.channelContents(s, m.ChannelID, true)
	observations := Observations(messages, nick)
	if len(observations) == 0 {
		b.send(s, m.ChannelID, "❌ No se encontraron observaciones para el nick: "+nick)
		return
	}

	summary, err := b.chatClient.Complete(ctx, chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: "Sos un asistente que resume observaciones de misiones para un personaje del juego."},
			{Role: chat.RoleUser, Content: fmt.Sprintf("Generá un resumen de estas observaciones para el nick %s:\n\n%s", nick, strings.Join(observations, "\n"))},
		},
	})
	if err != nil {
		b.send(s, m.ChannelID, "❌ Error al generar resumen: "+err.Error())
		return
	}
	b.send(s, m.ChannelID, fmt.Sprintf("📝 Resumen de observaciones para **%s**:\n%s", nick, summary))
}

func (b *Bot) handleGuildResumen(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, keyword string) {
	if keyword == "" {
		b.send(s, m.ChannelID, "❌ Indicá una palabra clave. Ejemplo: `!guild HypE`")
		return
	}
	b.send(s, m.ChannelID, fmt.Sprintf("🔍 Buscando mensajes relacionados con: **%s**...", keyword))
	keywordLower := strings.ToLower(keyword)
	var matches []string
	for _, content := range b.channelContents(s, m.ChannelID, true) {
		if strings.Contains(strings.ToLower(content), keywordLower) {
			matches = append(matches, content)
		}
	}
	if len(matches) == 0 {
		b.send(s, m.ChannelID, "❌ No se encontraron mensajes que contengan la palabra: "+keyword)
		return
	}

	summary, err := b.chatClient.Complete(ctx, chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: fmt.Sprintf("Generá un resumen de los siguientes mensajes relacionados con '%s':\n\n%s", keyword, strings.Join(matches, "\n"))},
		},
	})
	if err != nil {
		b.send(s, m.ChannelID, "❌ Error al generar resumen: "+err.Error())
		return
	}
	b.send(s, m.ChannelID, fmt.Sprintf("📝 Resumen sobre **%s**:\n%s", keyword, summary))
}

func (b *Bot) send(s *discordgo.Session, channelId string, content string) {
	if _, err := s.ChannelMessageSend(channelId, content); err != nil {
		b.log.Errorf("failed to send message to channel %s: %s", channelId, err)
	}
}
