package domain

// UnitMetadata — описание агента в каталоге метаданных.
//
// Метаданные определяют, разрешён ли вызов агента и какие
// агенты должны выполниться до него (пререквизиты).
type UnitMetadata struct {
	// ID — идентификатор агента (совпадает с именем в реестре).
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Enabled — флаг активности. Отключённый агент не может быть вызван
	// через Dependency Executor.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DependsOn — пререквизиты в порядке выполнения.
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`

	// Description — описание агента.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Inputs — описание входных параметров (имя → описание).
	Inputs map[string]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Outputs — описание выходных значений.
	Outputs map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Metadata — каталог метаданных, ключ — ID агента.
type Metadata map[string]UnitMetadata

// Get возвращает метаданные агента. Поле ID заполняется ключом.
func (m Metadata) Get(id string) (UnitMetadata, bool) {
	meta, ok := m[id]
	if !ok {
		return UnitMetadata{}, false
	}
	meta.ID = id
	return meta, true
}

// IsEnabled возвращает true, если агент описан и включён.
func (m Metadata) IsEnabled(id string) bool {
	meta, ok := m[id]
	return ok && meta.Enabled
}
