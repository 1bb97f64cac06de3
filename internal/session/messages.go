package session

import "fmt"

const (
	slashCommandStartDescription    = "通訳を開始します。"
	slashCommandStopDescription     = "通訳を中止します。キューに残った翻訳は最後まで読み上げます。"
	slashCommandLanguageDescription = "話し手の言語コード (例: ja, en-US)。省略時は既定の言語。"

	messageEphemeralWrongGuild     = ":warning: **このサーバーでは実行できません。**"
	messageEphemeralUnknownCommand = ":warning: **不明なコマンドです。**"
	messageEphemeralAlreadyRunning = ":warning: **既に通訳が実行中です。**"
	messageEphemeralAuthFailed     = ":warning: **文字起こしサービスの認証に失敗しました。**"
	messageEphemeralStartFailed    = ":warning: **通訳の開始に失敗しました。**"
	messageEphemeralNotRunning     = ":warning: **現在通訳は実行されていません。**"
	messagePoweredByLine           = "-# *Powered by [Tsuyaku](https://github.com/foxseedlab/tsuyaku)*"

	messageStartEphemeralTitleFormat = ":microphone2: **%s → %s の通訳を開始しました。**"
	messageStartEphemeralHint        = "-# /tsuyaku-stop コマンドで中止できます。"
	messageStopEphemeralTitle        = ":pause_button:  **通訳を中止しました。**"
	messageStopEphemeralHint         = "-# /tsuyaku コマンドで再度開始できます。"
)

func startEphemeralMessage(sourceLanguage, targetLanguage string) string {
	return fmt.Sprintf(messageStartEphemeralTitleFormat, sourceLanguage, targetLanguage) + "\n" +
		messageStartEphemeralHint + "\n" +
		messagePoweredByLine
}

func stopEphemeralMessage() string {
	return messageStopEphemeralTitle + "\n" + messageStopEphemeralHint
}
