package flow

// User-facing texts. The product speaks Russian; keep these verbatim so the
// bot behaves identically for existing users.
const (
	textHelp = "`/remind` - Установить напоминание.\n" +
		"`/delete_reminder` - Удалить напоминание.\n" +
		"`/list_reminders` - Показать список ваших напоминаний."
	textHelpKeyboardHint = "Выберите команду из предложенных ниже или введите её вручную:"

	textChooseInterval  = "Выберите интервал для напоминания:"
	textIntervalInvalid = "Пожалуйста, выберите интервал из предложенных вариантов."
	textEnterMessage    = "Введите сообщение для напоминания."

	textReminderSet = "*Напоминание установлено!*\n\nИнтервал: `%s`\nСообщение: `%s`"

	textNoReminders         = "*У вас нет активных напоминаний.*"
	textNoRemindersToDelete = "*У вас нет напоминаний для удаления.*"
	textYourReminders       = "*Ваши напоминания:*\n\n%s"
	textDeletePrompt        = "*Ваши напоминания:*\n\n%s\n\nВведите ID напоминания, чтобы удалить его."
	textDeleteBadID         = "Пожалуйста, введите корректный ID."
	textDeleteNotFound      = "Напоминание с указанным ID не найдено."
	textReminderDeleted     = "*Напоминание удалено!*"
)

// ReminderPrefix is prepended to every delivered notification.
const ReminderPrefix = "Напоминание: "

// parseMode for all FSM replies.
const parseMode = "Markdown"
