package progress

import "github.com/saberactivo/social/internal/models"

// DefaultXP is awarded by lessons that do not set their own value.
const DefaultXP = 50

func lesson(slug, title, desc string, lvl models.Level, order, xp int) models.Lesson {
	return models.Lesson{Slug: slug, Title: title, Description: &desc, XP: xp, Level: lvl, OrderIndex: order}
}

// Catalog returns the built-in lessons, seeded at server start.
func Catalog() []models.Lesson {
	return []models.Lesson{
		lesson("encender-equipo", "Encender y apagar el computador", "Arranque, apagado seguro y reinicio.", models.LevelBasic, 1, DefaultXP),
		lesson("mouse-teclado", "Uso del mouse y el teclado", "Clic, doble clic, arrastrar y atajos básicos.", models.LevelBasic, 2, DefaultXP),
		lesson("escritorio-ventanas", "Escritorio y ventanas", "Abrir, mover, minimizar y cerrar ventanas.", models.LevelBasic, 3, DefaultXP),
		lesson("archivos-carpetas", "Archivos y carpetas", "Crear, renombrar, mover y eliminar archivos.", models.LevelBasic, 4, DefaultXP),
		lesson("navegador", "Navegar por internet", "Direcciones, pestañas, marcadores y búsquedas.", models.LevelIntermediate, 5, 75),
		lesson("correo", "Correo electrónico", "Redactar, responder y adjuntar archivos.", models.LevelIntermediate, 6, 75),
		lesson("procesador-texto", "Procesador de texto", "Formato, listas, tablas y exportar a PDF.", models.LevelIntermediate, 7, 75),
		lesson("seguridad", "Seguridad en línea", "Contraseñas, phishing y verificación en dos pasos.", models.LevelIntermediate, 8, 100),
		lesson("hojas-calculo", "Hojas de cálculo", "Fórmulas, referencias y gráficos.", models.LevelExpert, 9, 120),
		lesson("nube", "Almacenamiento en la nube", "Sincronizar, compartir y versionar documentos.", models.LevelExpert, 10, 120),
		lesson("atajos-avanzados", "Atajos y automatización", "Atajos del sistema y tareas programadas.", models.LevelExpert, 11, 150),
	}
}
