package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты семантики one-shot маршрутизации

func TestPipelineShortCircuit(t *testing.T) {
	p := NewPipeline(DefaultModules())

	reply, trace := p.Run(Request{Message: "Привет!"})

	assert.Equal(t, "Принято. Вы в Сториграде. Кратко опишите, что хотите сделать в мире истории.", reply)
	// Первый же модуль принял запрос - перебор останавливается
	require.Len(t, trace, 1)
	assert.Equal(t, "greeting", trace[0].Module)
	assert.True(t, trace[0].Accepted)
	assert.Equal(t, 1.0, trace[0].Score)
	assert.Equal(t, reply, trace[0].Output)
}

func TestPipelinePriorityOrder(t *testing.T) {
	p := NewPipeline(DefaultModules())

	// Сообщение подходит и для lore, и для action; выигрывает более приоритетный lore
	reply, trace := p.Run(Request{Message: "осмотреть мир"})

	assert.Equal(t, "Опишите локацию, время, цель. Я предложу три стартовых сцены.", reply)
	require.Len(t, trace, 2)
	assert.Equal(t, "greeting", trace[0].Module)
	assert.False(t, trace[0].Accepted)
	assert.Empty(t, trace[0].Output, "непринявший модуль не должен оставлять вывод в трассе")
	assert.Equal(t, "lore", trace[1].Module)
	assert.True(t, trace[1].Accepted)
}

func TestPipelineActionModule(t *testing.T) {
	p := NewPipeline(DefaultModules())

	reply, trace := p.Run(Request{Message: "атаковать стражника"})

	assert.Equal(t, "Действие принято. Сформирую ответ ведущего и последствия.", reply)
	require.Len(t, trace, 3)
	assert.Equal(t, 0.8, trace[2].Score)
}

func TestPipelineFallbackOnly(t *testing.T) {
	p := NewPipeline(DefaultModules())

	reply, trace := p.Run(Request{Message: "xyzzy"})

	// Ответ - ровно вывод fallback, без конкатенации с чем-либо еще
	assert.Equal(t, "Опишите цель. Доступны: создание мира, выбор роли, действие.", reply)
	// Трасса содержит все модули, включая fallback
	require.Len(t, trace, len(DefaultModules()))
	for i, item := range trace[:len(trace)-1] {
		assert.False(t, item.Accepted, "модуль %d не должен был принять запрос", i)
		assert.Empty(t, item.Output)
	}
	last := trace[len(trace)-1]
	assert.Equal(t, FallbackName, last.Module)
	assert.True(t, last.Accepted)
	assert.Equal(t, 1.0, last.Score)
	assert.Equal(t, reply, last.Output)
}

func TestPipelineStateless(t *testing.T) {
	p := NewPipeline(DefaultModules())

	first, _ := p.Run(Request{Message: "ничего подходящего"})
	second, _ := p.Run(Request{Message: "ничего подходящего"})

	assert.Equal(t, first, second, "пайплайн должен быть детерминированным и без состояния")
}

func TestPipelineModuleNames(t *testing.T) {
	p := NewPipeline(DefaultModules())
	assert.Equal(t, []string{"greeting", "lore", "action", "fallback"}, p.ModuleNames())
}
