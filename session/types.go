// Package session связывает пайплайн воедино: анализ клипа, раскладка
// артефактов в хранилище и генерация датированных отчётов задач.
package session

// Канонический список элицитационных задач. Имена задач — это имена
// папок в хранилище и части имён файлов отчётов, менять их нельзя.
var Tasks = []string{
	"Rainbow passage",
	"Maximum sustained phonation on 'aaah'",
	"Comfortable sustained phonation on 'eeee'",
	"Glide up to your highest pitch on 'eeee'",
	"Glide down to your lowest pitch on 'eeee'",
	"Sustained 'aaah' at minimum volume",
	"Maximum loudness level (brief 'AAAH')",
	"Conversational speech",
}

// IsValidTask проверяет что имя задачи из канонического списка
func IsValidTask(name string) bool {
	for _, t := range Tasks {
		if t == name {
			return true
		}
	}
	return false
}
