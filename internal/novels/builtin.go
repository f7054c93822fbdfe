package novels

import "github.com/unalkalkan/NovelShelf/pkg/types"

var placeholderContent = []string{"这是第一章的内容...", "这是第二章的内容..."}

// chapters builds placeholder chapters numbered from 1
func chapters(titles ...string) []types.NovelChapter {
	out := make([]types.NovelChapter, len(titles))
	for i, title := range titles {
		content := placeholderContent[len(placeholderContent)-1]
		if i < len(placeholderContent) {
			content = placeholderContent[i]
		}
		out[i] = types.NovelChapter{ID: i + 1, Title: title, Content: content}
	}
	return out
}

func builtinNovels() []types.Novel {
	return []types.Novel{
		{
			ID:            1,
			Title:         "你的名字。",
			OriginalTitle: "君の名は。",
			Author:        "新海诚",
			Description:   "在梦中互换身体的两名少年少女，寻找彼此的故事。",
			CoverImage:    "/cover/你的名字。.jpg",
			PublishDate:   "2016-08-26",
			Chapters:      chapters("第一章 梦", "第二章 相遇"),
		},
		{
			ID:            2,
			Title:         "天气之子",
			OriginalTitle: "天気の子",
			Author:        "新海诚",
			Description:   "能够控制天气的少女阳菜与少年帆高的故事。",
			CoverImage:    "/cover/天气之子.jpg",
			PublishDate:   "2019-07-19",
			Chapters:      chapters("第一章 东京", "第二章 晴天女孩"),
		},
		{
			ID:            3,
			Title:         "言叶之庭",
			OriginalTitle: "言の葉の庭",
			Author:        "新海诚",
			Description:   "以雨天的东京庭园为舞台，15岁的高中生孝雄与神秘女性雪野的故事。",
			CoverImage:    "/cover/言叶之庭.jpg",
			PublishDate:   "2013-05-31",
			Chapters:      chapters("第一章 梅雨", "第二章 制鞋"),
		},
		{
			ID:            4,
			Title:         "云之彼端，约定的地方",
			OriginalTitle: "雲のむこう、約束の場所",
			Author:        "新海诚",
			Description:   "在战乱的时代背景下，三个少年少女跨越时空的约定。",
			CoverImage:    "/cover/云之彼端，约定的地方.jpg",
			PublishDate:   "2004-02-22",
			Chapters:      chapters("第一章 相遇", "第二章 约定"),
		},
		{
			ID:            5,
			Title:         "她和她的猫",
			OriginalTitle: "彼女と彼女の猫",
			Author:        "新海诚",
			Description:   "以一只猫的视角，讲述它与女主人之间的故事。",
			CoverImage:    "/cover/她和她的猫.jpg",
			PublishDate:   "1999-02-22",
			Chapters:      chapters("第一章 相遇", "第二章 生活"),
		},
		{
			ID:            6,
			Title:         "星之声",
			OriginalTitle: "ほしのこえ",
			Author:        "新海诚",
			Description:   "跨越宇宙距离的少男少女，通过短信传递思念的故事。",
			CoverImage:    "/cover/星之声.jpg",
			PublishDate:   "2002-02-02",
			Chapters:      chapters("第一章 出发", "第二章 思念"),
		},
		{
			ID:            7,
			Title:         "秒速5厘米",
			OriginalTitle: "秒速5センチメートル",
			Author:        "新海诚",
			Description:   "三个关于距离与时间的故事，讲述人与人之间的情感变迁。",
			CoverImage:    "/cover/秒速5厘米.jpg",
			PublishDate:   "2007-03-03",
			Chapters:      chapters("第一章 樱花抄", "第二章 宇航员"),
		},
		{
			ID:            8,
			Title:         "追逐繁星的孩子",
			OriginalTitle: "星を追う子ども",
			Author:        "新海诚",
			Description:   "少女明日菜踏上寻找传说中地下世界的旅程，探索生命与死亡的意义。",
			CoverImage:    "/cover/追逐繁星的孩子.jpg",
			PublishDate:   "2011-05-07",
			Chapters:      chapters("第一章 相遇", "第二章 地下世界"),
		},
		{
			ID:            9,
			Title:         "铃芽之旅",
			OriginalTitle: "すずめの戸締まり",
			Author:        "新海诚",
			Description:   "少女铃芽与神秘少年草太一起关闭灾难之门的冒险故事。",
			CoverImage:    "/cover/铃芽之旅.jpg",
			PublishDate:   "2022-11-11",
			Chapters:      chapters("第一章 相遇", "第二章 冒险"),
		},
	}
}
