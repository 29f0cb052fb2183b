package analysis

import "strings"

// Profile канонический профиль анализа. Исходная система использовала
// разные floor/ceiling в разных местах (2/600, 10/5000, 30/600);
// здесь один профиль на тип задачи, как конфигурация, а не литералы.
type Profile struct {
	PitchFloor   float64 // Hz
	PitchCeiling float64 // Hz

	TimeStep         float64 // шаг фреймов питч-трекера, сек
	VoicingThreshold float64 // порог нормированной автокорреляции
	SilenceThreshold float64 // RMS ниже которого фрейм считается тишиной
}

// DefaultProfile стандартный профиль речевых задач (75–600 Hz)
func DefaultProfile() Profile {
	return Profile{
		PitchFloor:       75,
		PitchCeiling:     600,
		TimeStep:         0.01,
		VoicingThreshold: 0.45,
		SilenceThreshold: 1e-4,
	}
}

// ProfileForTask возвращает профиль для задачи елицитации.
// Глиссандо вверх требует расширенного потолка, глиссандо вниз —
// опущенного пола; остальные задачи идут по умолчанию.
func ProfileForTask(task string) Profile {
	p := DefaultProfile()
	lower := strings.ToLower(task)
	switch {
	case strings.Contains(lower, "highest pitch"):
		p.PitchCeiling = 1000
	case strings.Contains(lower, "lowest pitch"):
		p.PitchFloor = 50
	}
	return p
}
