package domain

// ServiceCategory is a topic tile shown by the assistant app. Icon names
// a Material icon.
type ServiceCategory struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

// ServiceCategories returns the fixed list of assistant topics
func ServiceCategories() []ServiceCategory {
	return []ServiceCategory{
		{ID: 1, Title: "Диспетчерское и аварийно-ремонтное обслуживание", Icon: "PhoneInTalk"},
		{ID: 2, Title: "Капитальный ремонт общего имущества", Icon: "Build"},
		{ID: 3, Title: "Сбор и вывоз ТБО и КГО", Icon: "DeleteOutline"},
		{ID: 4, Title: "Создание ОСИ", Icon: "HomeWork"},
	}
}
