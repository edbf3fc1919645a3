package router

import "strings"

// Pipeline прогоняет запрос через фиксированный упорядоченный список модулей.
// Семантика one-shot: берется вывод первого принявшего запрос модуля
// (кроме fallback), после чего перебор останавливается. Если до fallback
// никто не принял - используется только вывод fallback, без конкатенации
// с выводами непринявших модулей.
type Pipeline struct {
	modules   []Module
	threshold float64
}

// NewPipeline создает пайплайн с порогом по умолчанию.
// Порядок модулей - это приоритет: он наблюдаем снаружи и менять его нельзя.
func NewPipeline(modules []Module) *Pipeline {
	return &Pipeline{
		modules:   modules,
		threshold: DefaultThreshold,
	}
}

// Run возвращает выбранный ответ и трассу всех рассмотренных модулей.
// Побочных эффектов нет: пайплайн чисто функционален над текстом запроса.
func (p *Pipeline) Run(req Request) (string, []TraceItem) {
	trace := make([]TraceItem, 0, len(p.modules))
	var outputs []string

	for _, m := range p.modules {
		ok, score := decide(m, req, p.threshold)
		out := ""
		if ok {
			out = m.Run(req)
		}
		trace = append(trace, TraceItem{
			Module:   m.Name(),
			Accepted: ok,
			Output:   out,
			Score:    score,
		})
		if ok && m.Name() != FallbackName {
			outputs = append(outputs, out)
			break // one-shot routing; fallback handles the rest
		}
	}

	if len(outputs) == 0 {
		// Никто не принял - остается только вывод fallback
		for _, item := range trace {
			if item.Module == FallbackName {
				outputs = append(outputs, item.Output)
			}
		}
	}

	var nonEmpty []string
	for _, out := range outputs {
		if out != "" {
			nonEmpty = append(nonEmpty, out)
		}
	}
	return strings.Join(nonEmpty, "\n"), trace
}

// ModuleNames возвращает имена модулей в порядке приоритета.
func (p *Pipeline) ModuleNames() []string {
	names := make([]string, 0, len(p.modules))
	for _, m := range p.modules {
		names = append(names, m.Name())
	}
	return names
}
